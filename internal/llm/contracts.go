package llm

import (
	"context"

	"github.com/mediway/labreports/internal/entity"
)

// ReportDocument is the JSON object a structured-extraction model must return.
type ReportDocument struct {
	PatientDetails PatientDetailsDoc `json:"Patient Details"`
	Tests          []TestDoc         `json:"Tests"`
}

type PatientDetailsDoc struct {
	Collected string `json:"Collected"`
	Reported  string `json:"Reported"`
}

type TestDoc struct {
	Name              string      `json:"Name"`
	Result            string      `json:"Result"`
	Unit              string      `json:"Unit"`
	ReferenceInterval IntervalDoc `json:"Reference Interval"`
}

// IntervalDoc bounds are "" when absent.
type IntervalDoc struct {
	Lower string `json:"Lower"`
	Upper string `json:"Upper"`
}

type ExtractRequest struct {
	OCRText string
	// FilenameHint is shown to the model when set.
	FilenameHint string
}

// StructuredExtractor returns the model's raw response content for one report.
// Decoding and validation are left to DecodeReportDocument.
type StructuredExtractor interface {
	ExtractReport(ctx context.Context, req ExtractRequest) ([]byte, error)
}

type ChatRequest struct {
	Messages         []entity.Turn
	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

// ChatCompleter produces the assistant reply for a message list.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
