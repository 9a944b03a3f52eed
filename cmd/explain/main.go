package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/core"
	"github.com/mediway/labreports/internal/entity"
)

// explain asks the configured LLM about a stored report and prints the reply.
// Without -prompt it prints the greeting.
func main() {
	var (
		id       = flag.String("id", "", "report id (required)")
		prompt   = flag.String("prompt", "", "question about the report")
		weight   = flag.Float64("weight", 0, "weight in kg")
		height   = flag.Float64("height", 0, "height in cm")
		symptoms = flag.String("symptoms", "", "comma separated symptoms")
		history  = flag.String("history", "", "medical history")
		reset    = flag.Bool("clear", false, "forget the conversation before asking")
	)
	flag.Parse()
	if *id == "" {
		fmt.Fprintln(os.Stderr, "Error: --id is required")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	app, err := core.Build(ctx, cfg, core.Options{}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Explainer == nil {
		fmt.Fprintln(os.Stderr, "Error: no LLM provider configured (set LLM_API_KEY or GEMINI_API_KEY)")
		app.Close()
		os.Exit(1)
	}

	report, err := app.Reports.Fetch(ctx, *id)
	if err != nil || report == nil {
		fmt.Fprintf(os.Stderr, "Error: report %s not found %v\n", *id, err)
		app.Close()
		os.Exit(1)
	}

	if *reset {
		if err := app.History.Clear(ctx, *id); err != nil {
			logger.Warn("clearing history failed", "error", err)
		}
	}

	pc := entity.PatientContext{
		Age:      report.Patient.Age,
		Gender:   report.Patient.Gender,
		WeightKg: *weight,
		HeightCm: *height,
		History:  *history,
	}
	for _, s := range strings.Split(*symptoms, ",") {
		if s = strings.TrimSpace(s); s != "" {
			pc.Symptoms = append(pc.Symptoms, s)
		}
	}

	reply, err := app.Explainer.Explain(ctx, report, pc, *prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		app.Close()
		os.Exit(1)
	}
	fmt.Println(reply)
}
