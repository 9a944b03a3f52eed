package entity

import "time"

// PatientFields holds the patient metadata read from a report header.
// Values are free text exactly as OCR produced them; dates are not parsed.
type PatientFields struct {
	Name      string `json:"name"`
	LabNo     string `json:"lab_no"`
	Age       string `json:"age"`
	Gender    string `json:"gender"`
	Collected string `json:"collected_date"`
	Reported  string `json:"reported_date"`
}

// ParsedReport is what a parser produces from raw OCR text.
type ParsedReport struct {
	Patient PatientFields `json:"patient"`
	Tests   []TestEntry   `json:"tests"`
}

// Report represents a persisted report for data transfer between layers.
type Report struct {
	ReportID  string        `json:"report_id"`
	Patient   PatientFields `json:"patient"`
	Tests     []TestEntry   `json:"tests"`
	CreatedAt time.Time     `json:"created_at"`
}

// ReportSummary is a list row without the test entries.
type ReportSummary struct {
	ReportID  string    `json:"report_id"`
	Name      string    `json:"name"`
	Reported  string    `json:"reported_date"`
	TestCount int       `json:"test_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Hints override parsed patient fields when non-empty.
type Hints struct {
	Name   string
	Age    string
	Gender string
}

// Apply copies every non-empty hint over the matching patient field.
func (h Hints) Apply(p *PatientFields) {
	if h.Name != "" {
		p.Name = h.Name
	}
	if h.Age != "" {
		p.Age = h.Age
	}
	if h.Gender != "" {
		p.Gender = h.Gender
	}
}
