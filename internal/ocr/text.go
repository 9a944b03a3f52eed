package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mediway/labreports/internal/common"
)

// ExtractText runs tesseract over imagePath and returns the normalized transcription.
// No accuracy guarantee; callers must tolerate missing fields and split tokens.
func (e *Extractor) ExtractText(ctx context.Context, imagePath string) (string, error) {
	start := time.Now()

	if _, err := os.Stat(imagePath); err != nil {
		return "", common.OCRError("open image", err)
	}

	// tesseract <file> stdout -l <lang> [--psm N] [--oem N] [--tessdata-dir D]
	args := []string{imagePath, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", common.OCRError(fmt.Sprintf("tesseract: %s", strings.TrimSpace(truncate(string(errb), 512))), err)
	}

	txt := Normalize(string(out))
	e.logger.Debug("ocr.text.ok",
		"image", imagePath,
		"lang", e.cfg.TesseractLang,
		"chars", len(txt),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return txt, nil
}
