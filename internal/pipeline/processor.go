// Package pipeline turns one report document into a stored record:
// render page 1, recognize its text, parse it, persist it. Stages run in
// order and the first failure aborts the report with nothing stored.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediway/labreports/constants"
	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/events"
	"github.com/mediway/labreports/internal/parser"
)

type PageRenderer interface {
	RenderFirstPage(ctx context.Context, docPath, outPath string) error
}

type TextRecognizer interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

type ReportStore interface {
	Insert(ctx context.Context, parsed entity.ParsedReport) (string, error)
}

// Processor coordinates render, OCR, parse and persist for one document.
// It holds no per-report state and is safe for concurrent use.
type Processor struct {
	Renderer    PageRenderer
	OCR         TextRecognizer
	Parser      parser.ReportParser
	Store       ReportStore
	Events      events.Publisher
	ArtifactDir string
	Logger      *slog.Logger
}

type Option func(*Processor)

func WithArtifactDir(dir string) Option {
	return func(p *Processor) {
		if dir != "" {
			p.ArtifactDir = dir
		}
	}
}

func WithPublisher(pub events.Publisher) Option {
	return func(p *Processor) {
		if pub != nil {
			p.Events = pub
		}
	}
}

func NewProcessor(r PageRenderer, ocr TextRecognizer, parse parser.ReportParser, store ReportStore, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		Renderer:    r,
		OCR:         ocr,
		Parser:      parse,
		Store:       store,
		Events:      events.Noop{},
		ArtifactDir: os.TempDir(),
		Logger:      logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs the pipeline and collapses any failure to ("", false). The
// diagnostic is logged; use Run to get it as an error.
func (p *Processor) Process(ctx context.Context, docPath string, hints entity.Hints) (string, bool) {
	id, err := p.Run(ctx, docPath, hints)
	if err != nil {
		return "", false
	}
	return id, true
}

// Run processes docPath and returns the new report ID. Errors are stage
// typed (RenderError, OCRError, ExtractionError, StoreError). Non-empty hints
// replace the parsed patient name, age and gender before the insert.
func (p *Processor) Run(ctx context.Context, docPath string, hints entity.Hints) (string, error) {
	start := time.Now()
	log := p.Logger.With("path", docPath, "parser", p.Parser.Name())
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		log = log.With("request_id", rid)
	}

	if !constants.IsAllowedExt(filepath.Ext(docPath)) {
		err := common.RenderError(fmt.Sprintf("unsupported document type %q", filepath.Ext(docPath)), nil)
		log.Error("pipeline.render.failed", "error", err)
		return "", err
	}

	artifact := filepath.Join(p.ArtifactDir, "report-"+uuid.NewString()+".png")
	defer func() {
		if err := os.Remove(artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("pipeline.artifact.cleanup.failed", "artifact", artifact, "error", err)
		}
	}()

	if err := p.Renderer.RenderFirstPage(ctx, docPath, artifact); err != nil {
		log.Error("pipeline.render.failed", "error", err)
		return "", ensureStage(err, common.RenderError, "render first page")
	}

	text, err := p.OCR.ExtractText(ctx, artifact)
	if err != nil {
		log.Error("pipeline.ocr.failed", "error", err)
		return "", ensureStage(err, common.OCRError, "recognize text")
	}
	if strings.TrimSpace(text) == "" {
		err := common.OCRError("empty transcription", nil)
		log.Error("pipeline.ocr.failed", "error", err)
		return "", err
	}
	log.Debug("pipeline.ocr.ok", "chars", len(text))

	parsed, err := p.Parser.Parse(ctx, text)
	if err != nil {
		log.Error("pipeline.parse.failed", "error", err)
		return "", ensureStage(err, common.ExtractionError, "parse report")
	}
	hints.Apply(&parsed.Patient)

	id, err := p.Store.Insert(ctx, parsed)
	if err != nil {
		log.Error("pipeline.store.failed", "error", err)
		return "", ensureStage(err, common.StoreError, "insert report")
	}

	if err := p.Events.Publish(ctx, constants.EventReportProcessed, map[string]interface{}{
		"report_id": id,
		"tests":     len(parsed.Tests),
		"parser":    p.Parser.Name(),
	}); err != nil {
		log.Warn("pipeline.publish.failed", "report_id", id, "error", err)
	}

	log.Info("pipeline.ok",
		"report_id", id,
		"tests", len(parsed.Tests),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return id, nil
}

// ensureStage keeps an already typed stage error and wraps anything else.
func ensureStage(err error, wrap func(string, error) error, msg string) error {
	if common.StageOf(err) != nil {
		return err
	}
	return wrap(msg, err)
}
