package explain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mediway/labreports/internal/entity"
)

type reportView struct {
	PatientDetails patientView `json:"Patient Details"`
	Tests          []testView  `json:"Tests"`
}

type patientView struct {
	Name      string `json:"Name"`
	LabNo     string `json:"Lab No,omitempty"`
	Age       string `json:"Age"`
	Gender    string `json:"Gender"`
	Collected string `json:"Collected Date"`
	Reported  string `json:"Reported Date"`
}

type testView struct {
	Name     string       `json:"Test Name"`
	Result   string       `json:"Result"`
	Unit     string       `json:"Unit"`
	Interval intervalView `json:"Reference Interval"`
}

type intervalView struct {
	Lower *string `json:"Lower"`
	Upper *string `json:"Upper"`
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func reportJSON(r *entity.Report) (string, error) {
	v := reportView{
		PatientDetails: patientView{
			Name:      r.Patient.Name,
			LabNo:     r.Patient.LabNo,
			Age:       r.Patient.Age,
			Gender:    r.Patient.Gender,
			Collected: r.Patient.Collected,
			Reported:  r.Patient.Reported,
		},
		Tests: make([]testView, 0, len(r.Tests)),
	}
	for _, t := range r.Tests {
		v.Tests = append(v.Tests, testView{
			Name:     t.Name,
			Result:   t.Result,
			Unit:     t.Unit,
			Interval: intervalView{Lower: t.Interval.Lower, Upper: t.Interval.Upper},
		})
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func systemPrompt(first string) string {
	return fmt.Sprintf(`You are Dr. %[1]s's AI health assistant.
You specialize in analyzing blood test results and explaining them in empathetic, simple language.

ALWAYS follow these:
- Use the patient's first name (%[1]s)
- Be warm, positive, and compassionate
- Use analogies and everyday language
- Only greet once (if it's the first message)
- If this is a follow-up, do NOT repeat prior insights unless asked
- Use paragraph breaks for readability`, first)
}

func backgroundPrompt(r *entity.Report, pc entity.PatientContext) (string, error) {
	rj, err := reportJSON(r)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Patient Info:\n")
	fmt.Fprintf(&b, "Name: %s\n", orDefault(r.Patient.Name, "there"))
	fmt.Fprintf(&b, "Age: %s, Gender: %s\n\n", orDefault(r.Patient.Age, "unknown age"), orDefault(r.Patient.Gender, "unspecified"))
	b.WriteString("Lab Report:\n")
	b.WriteString(rj)
	if extra := pc.Format(); extra != "" {
		b.WriteString("\n\n")
		b.WriteString(extra)
	}
	return b.String(), nil
}

func greetingPrompt(first string) string {
	return fmt.Sprintf("Start by greeting %s and highlight 1-2 key findings. "+
		"Explain them simply, use a helpful analogy, relate any symptoms provided, "+
		"and ask how they're feeling. Offer some positive next steps.", first)
}
