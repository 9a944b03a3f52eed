package llm

import (
	"strings"
	"unicode/utf8"
)

// MaxPromptOCRChars caps the OCR text sent to a model.
const MaxPromptOCRChars = 12000

// BuildExtractionSystemPrompt states the exact output contract.
func BuildExtractionSystemPrompt() string {
	parts := []string{
		"You extract blood-test reports into JSON.",
		"Return ONLY a single JSON object: no prose, no markdown fences.",
		`The object must have exactly this shape: {"Patient Details": {"Collected": "", "Reported": ""}, "Tests": [{"Name": "", "Result": "", "Unit": "", "Reference Interval": {"Lower": "", "Upper": ""}}]}.`,
		"Every field must be present and every value must be a string; use an empty string when a value is not visible.",
		"Copy Collected and Reported dates exactly as printed.",
		"Add one entry to Tests per measured test row, in report order. Do not invent tests.",
		`For a ceiling-only interval such as "<5.0" put "NA" in Lower and "5.0" in Upper. For a floor-only interval such as ">100" put "100" in Lower and leave Upper empty.`,
	}
	return strings.Join(parts, " ")
}

// BuildExtractionUserPrompt wraps the OCR text, truncated to at most
// MaxPromptOCRChars bytes on a rune boundary.
func BuildExtractionUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if req.FilenameHint != "" {
		b.WriteString("Filename: ")
		b.WriteString(req.FilenameHint)
		b.WriteString("\n\n")
	}
	b.WriteString("OCR text:\n")
	ocr := req.OCRText
	if len(ocr) > MaxPromptOCRChars {
		cut := MaxPromptOCRChars
		for cut > 0 && !utf8.RuneStart(ocr[cut]) {
			cut--
		}
		ocr = ocr[:cut]
	}
	b.WriteString(ocr)
	return b.String()
}

// SchemaJSON renders the validation schema for inclusion in a prompt.
func SchemaJSON() (string, error) {
	_, doc, err := loadReportSchema()
	if err != nil {
		return "", err
	}
	return string(doc), nil
}
