package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mediway/labreports/internal/async"
	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/core"
	"github.com/mediway/labreports/internal/ingest"
	"github.com/mediway/labreports/internal/repository"
	"github.com/mediway/labreports/internal/server"
)

func main() {
	// Structured text logger without time/level, like the other daemons
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := core.Build(ctx, cfg, core.Options{}, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := repository.HealthCheck(ctx, app.DB, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer, _ := server.NewGRPCServer(app.ReportsService(), logger)

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(512),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithResultHandler(func(r async.Result) {
			if r.Err != nil {
				logger.Warn("inbox document failed", "path", r.Job.Path, "stage", common.StageOf(r.Err), "error", r.Err)
			}
		}),
	)

	if cfg.Queue.InboxDir != "" {
		if err := watchInbox(ctx, cfg.Queue.InboxDir, queue, logger); err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Queue.InboxDir, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("labreportsd listening", "addr", addr, "parser", app.Processor.Parser.Name())
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queue.JobTimeout)
	defer cancel()
	queue.Shutdown(shutdownCtx)
}

// watchInbox feeds every new document in dir to the queue, skipping content
// that was already seen during this run.
func watchInbox(ctx context.Context, dir string, queue async.Queue, logger *slog.Logger) error {
	evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	dedup := ingest.NewDeduper()

	go func() {
		for {
			select {
			case path, ok := <-evCh:
				if !ok {
					return
				}
				hex, err := ingest.HashFile(path)
				if err != nil {
					logger.Warn("inbox document unreadable", "path", path, "error", err)
					continue
				}
				if first, dup := dedup.Seen(hex, path); dup {
					logger.Info("inbox document already processed", "path", path, "first", first)
					continue
				}
				if err := queue.Enqueue(ctx, async.Job{Path: path, TraceID: hex[:12]}); err != nil {
					logger.Warn("inbox enqueue failed", "path", path, "error", err)
				}
			case err, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				logger.Warn("inbox watcher error", "error", err)
			}
		}
	}()
	return nil
}
