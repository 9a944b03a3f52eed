package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mediway/labreports/internal/common"
	"github.com/mediway/labreports/internal/ocr"
	"github.com/mediway/labreports/internal/parser"
)

// runocr renders a document, prints the recognized text and optionally the
// grammar parse. Nothing is stored.
func main() {
	parse := flag.Bool("parse", false, "also print the grammar parse as JSON")
	keep := flag.Bool("keep-image", false, "keep the rendered PNG next to the document")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-parse] [-keep-image] <document>\n", os.Args[0])
		os.Exit(2)
	}
	docPath := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg := common.LoadConfig()
	extractor := ocr.NewExtractor(ocr.Config{
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		TessdataDir:   cfg.OCR.TessdataDir,
		PSM:           cfg.OCR.PSM,
	}, logger)

	ctx := context.Background()
	imgPath := docPath + ".ocr.png"
	if !*keep {
		tmp, err := os.MkdirTemp("", "runocr-*")
		if err != nil {
			logger.Error("temp dir", "error", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmp)
		imgPath = filepath.Join(tmp, "page.png")
	}

	if err := extractor.RenderFirstPage(ctx, docPath, imgPath); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
	text, err := extractor.ExtractText(ctx, imgPath)
	if err != nil {
		logger.Error("ocr failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(text)

	if *parse {
		p := parser.NewGrammarParser(logger, parser.WithKeepLastEntry(cfg.Parser.KeepLastEntry))
		parsed, err := p.Parse(ctx, text)
		if err != nil {
			logger.Error("parse failed", "error", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(parsed)
	}
}
