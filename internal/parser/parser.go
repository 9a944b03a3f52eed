// Package parser turns raw OCR text into patient fields and lab test entries.
package parser

import (
	"context"

	"github.com/mediway/labreports/internal/entity"
)

// ReportParser is implemented by every parsing strategy.
type ReportParser interface {
	Parse(ctx context.Context, rawText string) (entity.ParsedReport, error)
	// Name identifies the strategy in logs.
	Name() string
}
