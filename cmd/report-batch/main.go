package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/mediway/labreports/constants"
	"github.com/mediway/labreports/internal/async"
	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/core"
	"github.com/mediway/labreports/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem   = flag.Bool("inmem", false, "use a throwaway SQLite database")
		dir     = flag.String("dir", "", "directory of report documents (required)")
		out     = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		workers = flag.Int("workers", 0, "parallel pipelines (defaults to QUEUE_WORKERS)")
		hidden  = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "lab-reports.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
	}
	if *workers > 0 {
		cfg.Queue.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}

	app, err := core.Build(ctx, cfg, core.Options{InMemory: *inmem}, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	docs, stats, err := ingest.ScanDirectory(ctx, *dir, !*hidden, nil)
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		app.Close()
		os.Exit(1)
	}
	logger.Info("scan complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"accepted", stats.Accepted,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)

	var (
		mu      sync.Mutex
		ids     = map[string]string{}
		results []async.Result
	)
	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithProcessTimeout(cfg.Queue.JobTimeout),
		async.WithResultHandler(func(r async.Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
			st := constants.ReportStatusFailed
			if r.Err == nil {
				ids[r.Job.Path] = r.ReportID
				st = constants.ReportStatusProcessed
			}
			logger.Info("document finished", "path", r.Job.Path, "status", st, "report_id", r.ReportID, "elapsed", r.Elapsed)
		}),
	)

	for _, d := range docs {
		if d.Err != "" || d.Deduplicated {
			continue
		}
		if err := queue.Enqueue(ctx, async.Job{Path: d.Path, TraceID: d.HashHex[:12]}); err != nil {
			logger.Error("failed to enqueue", "path", d.Path, "error", err)
		}
	}
	queue.Shutdown(context.Background())

	// Export in scan order so the workbook is stable across runs.
	var ordered []string
	for _, d := range docs {
		if id, ok := ids[d.Path]; ok {
			ordered = append(ordered, id)
		}
	}
	failures := len(results) - len(ordered)

	if len(ordered) > 0 {
		xlsx, err := app.Exporter.ExportReportsXLSX(ctx, ordered)
		if err != nil {
			logger.Error("failed to export reports", "error", err)
			app.Close()
			os.Exit(1)
		}
		if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			app.Close()
			os.Exit(1)
		}
	}

	logger.Info("batch processing complete",
		"documents", len(results),
		"processed", len(ordered),
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents found: %d (%d duplicates skipped)\n", stats.Matched, stats.Deduplicated)
	fmt.Printf("- Reports stored: %d\n", len(ordered))
	fmt.Printf("- Failures: %d\n", failures)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("  ✗ %s: %v\n", r.Job.Path, r.Err)
		}
	}
	if len(ordered) > 0 {
		fmt.Printf("- Output: %s\n", *out)
	}
}
