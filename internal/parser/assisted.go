package parser

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/llm"
)

// AssistedParser delegates test extraction to a structured-extraction model.
// The model schema only carries the two dates, so name, lab number, age and
// gender still come from the header labels in the OCR text.
type AssistedParser struct {
	extractor llm.StructuredExtractor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAssistedParser wraps extractor. timeout bounds the single model call; 0 means 30s.
func NewAssistedParser(extractor llm.StructuredExtractor, timeout time.Duration, logger *slog.Logger) *AssistedParser {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AssistedParser{extractor: extractor, timeout: timeout, logger: logger}
}

func (p *AssistedParser) Name() string { return "assisted" }

func (p *AssistedParser) Parse(ctx context.Context, rawText string) (entity.ParsedReport, error) {
	ctx, cancel := common.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, err := p.extractor.ExtractReport(ctx, llm.ExtractRequest{OCRText: rawText})
	if err != nil {
		return entity.ParsedReport{}, common.ExtractionError("structured extraction call", err)
	}
	doc, err := llm.DecodeReportDocument(raw, p.logger)
	if err != nil {
		p.logger.Error("parser.assisted.decode_failed", "error", err, "raw_bytes", len(raw))
		return entity.ParsedReport{}, err
	}

	patient := ParsePatientFields(strings.Split(rawText, "\n"))
	patient.Collected = strings.TrimSpace(doc.PatientDetails.Collected)
	patient.Reported = strings.TrimSpace(doc.PatientDetails.Reported)

	tests := make([]entity.TestEntry, 0, len(doc.Tests))
	skipped := 0
	for _, t := range doc.Tests {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			skipped++
			continue
		}
		tests = append(tests, entity.TestEntry{
			Name:     name,
			Result:   strings.TrimSpace(t.Result),
			Unit:     strings.TrimSpace(t.Unit),
			Interval: intervalFromDoc(t.ReferenceInterval),
		})
	}

	if skipped > 0 {
		p.logger.Warn("parser.assisted.unnamed_rows_skipped", "skipped", skipped)
	}
	p.logger.Debug("parser.assisted.ok", "tests", len(tests))
	return entity.ParsedReport{Patient: patient, Tests: tests}, nil
}

// intervalFromDoc maps model bounds; "" means absent. A lone Lower is run
// through NormalizeInterval so "<5.0" or "4.5-10.2" still split correctly.
func intervalFromDoc(d llm.IntervalDoc) entity.ReferenceInterval {
	lower := strings.TrimSpace(d.Lower)
	upper := strings.TrimSpace(d.Upper)
	switch {
	case lower == "" && upper == "":
		return entity.ReferenceInterval{}
	case upper == "":
		return NormalizeInterval(lower)
	case lower == "":
		return entity.ReferenceInterval{Upper: entity.StrPtr(upper)}
	default:
		return entity.ReferenceInterval{Lower: entity.StrPtr(lower), Upper: entity.StrPtr(upper)}
	}
}
