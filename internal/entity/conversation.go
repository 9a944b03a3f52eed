package entity

import (
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a report's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PatientContext is optional information supplied alongside a report when
// asking for an explanation. WeightKg and HeightCm are used for BMI.
type PatientContext struct {
	Age         string   `json:"age,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	WeightKg    float64  `json:"weight,omitempty"`
	HeightCm    float64  `json:"height,omitempty"`
	Symptoms    []string `json:"symptoms,omitempty"`
	History     string   `json:"history,omitempty"`
	Lifestyle   string   `json:"lifestyle,omitempty"`
	Medications string   `json:"medications,omitempty"`
}

// IsEmpty reports whether no context was supplied.
func (c PatientContext) IsEmpty() bool {
	return c.Age == "" && c.Gender == "" && c.WeightKg == 0 && c.HeightCm == 0 &&
		len(c.Symptoms) == 0 && c.History == "" && c.Lifestyle == "" && c.Medications == ""
}

// BMI returns weight/height² and false when either measurement is missing.
func (c PatientContext) BMI() (float64, bool) {
	if c.WeightKg <= 0 || c.HeightCm <= 0 {
		return 0, false
	}
	m := c.HeightCm / 100
	return c.WeightKg / (m * m), true
}

// Format renders the context as a prompt block. Empty context renders "".
func (c PatientContext) Format() string {
	if c.IsEmpty() {
		return ""
	}
	or := func(s, def string) string {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	symptoms := strings.Join(c.Symptoms, ", ")

	var b strings.Builder
	b.WriteString("Additional Patient Context:\n")
	fmt.Fprintf(&b, "- Age: %s, Gender: %s\n", c.Age, c.Gender)
	if bmi, ok := c.BMI(); ok {
		fmt.Fprintf(&b, "- Weight: %g kg, Height: %g cm, BMI: %.1f\n", c.WeightKg, c.HeightCm, bmi)
	}
	fmt.Fprintf(&b, "- Symptoms: %s\n", or(symptoms, "None reported"))
	fmt.Fprintf(&b, "- History: %s\n", or(c.History, "Not provided"))
	fmt.Fprintf(&b, "- Lifestyle: %s\n", or(c.Lifestyle, "Not provided"))
	fmt.Fprintf(&b, "- Medications: %s", or(c.Medications, "None reported"))
	return b.String()
}
