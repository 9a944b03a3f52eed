package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/core"
	"github.com/mediway/labreports/internal/entity"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file    = flag.String("file", "", "report document (pdf, png, jpg, jpeg) (required)")
		name    = flag.String("name", "", "override the patient name")
		age     = flag.String("age", "", "override the patient age")
		gender  = flag.String("gender", "", "override the patient gender")
		inmem   = flag.Bool("inmem", false, "use a throwaway SQLite database")
		explain = flag.String("explain", "", "ask a question about the stored report (\"-\" for the greeting)")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx := context.Background()
	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
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

	id, err := app.Processor.Run(ctx, *file, entity.Hints{Name: *name, Age: *age, Gender: *gender})
	if err != nil {
		printError("Processing failed (%v): %v\n", common.StageOf(err), err)
		app.Close()
		os.Exit(1)
	}

	report, err := app.Reports.Fetch(ctx, id)
	if err != nil || report == nil {
		printError("Error: stored report %s could not be read back: %v\n", id, err)
		app.Close()
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if *explain != "" {
		if app.Explainer == nil {
			printError("Error: --explain needs an LLM API key\n")
			app.Close()
			os.Exit(1)
		}
		prompt := *explain
		if prompt == "-" {
			prompt = ""
		}
		reply, err := app.Explainer.Explain(ctx, report, entity.PatientContext{}, prompt)
		if err != nil {
			printError("Explanation failed: %v\n", err)
			app.Close()
			os.Exit(1)
		}
		fmt.Println(reply)
	}
}
