// Package core wires configuration into the running components shared by the
// binaries: store, pipeline, history, explanations, events and export.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mediway/labreports/constants"
	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/events"
	"github.com/mediway/labreports/internal/explain"
	"github.com/mediway/labreports/internal/export"
	"github.com/mediway/labreports/internal/history"
	"github.com/mediway/labreports/internal/llm"
	"github.com/mediway/labreports/internal/llm/gemini"
	"github.com/mediway/labreports/internal/llm/openai"
	"github.com/mediway/labreports/internal/ocr"
	"github.com/mediway/labreports/internal/parser"
	"github.com/mediway/labreports/internal/pipeline"
	"github.com/mediway/labreports/internal/repository"
	"github.com/mediway/labreports/internal/server"
)

type Options struct {
	// InMemory stores everything in a throwaway SQLite file removed on Close.
	InMemory bool
}

// Provider is implemented by both LLM clients.
type Provider interface {
	llm.StructuredExtractor
	llm.ChatCompleter
}

type App struct {
	Config    *common.Config
	DB        *repository.DB
	Reports   repository.ReportRepository
	History   *history.Service
	Processor *pipeline.Processor
	Exporter  *export.Service
	Explainer *explain.Explainer // nil without an LLM provider
	Events    events.Publisher
	Logger    *slog.Logger

	closers []func()
}

// Build opens the store, runs migrations and assembles every component.
// On error everything opened so far is released.
func Build(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	dbCfg := repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
	if opts.InMemory {
		dir, err := os.MkdirTemp("", "labreports-*")
		if err != nil {
			return nil, fmt.Errorf("temp database dir: %w", err)
		}
		app.closers = append(app.closers, func() { _ = os.RemoveAll(dir) })
		dbCfg.Driver = repository.DriverSQLite
		dbCfg.DSN = filepath.Join(dir, "labreports.db")
		dbCfg.MaxConns = 0
	}

	db, err := repository.Open(ctx, dbCfg, logger)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	app.DB = db
	app.closers = append(app.closers, func() { repository.Close(db, logger) })

	if err := repository.Migrate(ctx, db); err != nil {
		return nil, common.WrapError(err, "migrate database")
	}

	app.Reports = repository.NewReportRepository(db, logger)
	app.History = history.NewService(repository.NewHistoryRepository(db, logger), newCache(ctx, cfg, app, logger), cfg.History.Limit, logger)
	app.Exporter = export.NewService(app.Reports, logger)
	app.Events = newPublisher(cfg, app, logger)

	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		app.Explainer = explain.NewExplainer(provider, app.History, cfg.LLM.Timeout, logger)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
	}, logger)

	app.Processor = pipeline.NewProcessor(extractor, extractor, newParser(cfg, provider, logger), app.Reports, logger,
		pipeline.WithArtifactDir(cfg.OCR.ArtifactDir),
		pipeline.WithPublisher(app.Events),
	)
	return app, nil
}

// ReportsService exposes the app over the gRPC service.
func (a *App) ReportsService() *server.ReportsService {
	d := server.Deps{
		Processor: a.Processor,
		Reports:   a.Reports,
		Exporter:  a.Exporter,
		History:   a.History,
		Events:    a.Events,
	}
	if a.Explainer != nil {
		d.Explainer = a.Explainer
	}
	return server.NewReportsService(d, a.Logger)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newProvider(ctx context.Context, cfg *common.Config, logger *slog.Logger) (Provider, error) {
	if !cfg.LLMConfigured() {
		logger.Warn("no LLM API key configured, explanations and assisted parsing are disabled", "provider", cfg.LLM.Provider)
		return nil, nil
	}
	switch cfg.LLM.Provider {
	case constants.ProviderGemini:
		c, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		logger.Info("gemini client initialized", "model", cfg.Gemini.Model)
		return c, nil
	default:
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
		logger.Info("openai client initialized", "model", cfg.LLM.Model)
		return c, nil
	}
}

func newParser(cfg *common.Config, provider Provider, logger *slog.Logger) parser.ReportParser {
	if cfg.EffectiveStrategy() == constants.StrategyAssisted && provider != nil {
		logger.Info("using assisted report parser")
		return parser.NewAssistedParser(provider, cfg.LLM.Timeout, logger)
	}
	logger.Info("using grammar report parser", "keep_last_entry", cfg.Parser.KeepLastEntry)
	return parser.NewGrammarParser(logger, parser.WithKeepLastEntry(cfg.Parser.KeepLastEntry))
}

func newCache(ctx context.Context, cfg *common.Config, app *App, logger *slog.Logger) history.Cache {
	if cfg.Redis.Addr == "" {
		return history.NewMemoryCache()
	}
	rc, err := history.NewRedisCache(ctx, history.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, using in-process history cache", "error", err)
		return history.NewMemoryCache()
	}
	app.closers = append(app.closers, func() { _ = rc.Close() })
	return rc
}

func newPublisher(cfg *common.Config, app *App, logger *slog.Logger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Noop{}
	}
	p := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	app.closers = append(app.closers, func() {
		if err := p.Close(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	})
	logger.Info("publishing report events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return p
}
