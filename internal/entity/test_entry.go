package entity

// NoLowerBound marks a ceiling-only interval such as "<5.0".
const NoLowerBound = "NA"

// ReferenceInterval is the normal range a result is compared against.
// Lower is numeric text, NoLowerBound, or nil; Upper is numeric text or nil.
type ReferenceInterval struct {
	Lower *string `json:"lower,omitempty"`
	Upper *string `json:"upper,omitempty"`
}

// Detected reports whether any bound was found.
func (r ReferenceInterval) Detected() bool {
	return r.Lower != nil || r.Upper != nil
}

// TestEntry is one row of a lab panel.
type TestEntry struct {
	Name     string            `json:"name"`
	Result   string            `json:"result"`
	Unit     string            `json:"unit"`
	Interval ReferenceInterval `json:"reference_interval"`
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// StrOrEmpty dereferences p, returning "" for nil.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
