package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mediway/labreports/constants"
	"github.com/mediway/labreports/internal/common"
)

// RenderFirstPage writes page 1 of docPath to outPath as a PNG.
// PDFs are rasterized at the configured DPI; PNG and JPEG inputs are re-encoded.
// The caller owns outPath and must remove it.
func (e *Extractor) RenderFirstPage(ctx context.Context, docPath, outPath string) error {
	start := time.Now()

	st, err := os.Stat(docPath)
	if err != nil {
		return common.RenderError("open document", err)
	}
	if st.IsDir() {
		return common.RenderError(fmt.Sprintf("%s is a directory", docPath), nil)
	}
	if st.Size() == 0 {
		return common.RenderError("empty document", nil)
	}
	if filepath.Ext(outPath) != ".png" {
		return common.RenderError(fmt.Sprintf("output %q must have a .png extension", outPath), nil)
	}

	ext := constants.NormalizeExt(filepath.Ext(docPath))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		err = e.renderPDF(ctx, docPath, outPath)
	case constants.IMAGE:
		err = transcodeToPNG(docPath, outPath)
	default:
		e.logger.Error("ocr.render.unsupported", "path", docPath, "extension", ext)
		return common.RenderError(fmt.Sprintf("unsupported extension %q", ext), nil)
	}
	if err != nil {
		return err
	}

	e.logger.Debug("ocr.render.ok",
		"path", docPath,
		"out", outPath,
		"dpi", e.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *Extractor) renderPDF(ctx context.Context, docPath, outPath string) error {
	// pdftoppm -f 1 -l 1 -r 300 -png -singlefile <in.pdf> <prefix>  => <prefix>.png
	prefix := strings.TrimSuffix(outPath, ".png")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", "1", "-l", "1",
		"-r", strconv.Itoa(e.cfg.DPI),
		"-png", "-singlefile",
		docPath, prefix,
	)
	if err != nil {
		return common.RenderError(fmt.Sprintf("pdftoppm: %s", strings.TrimSpace(truncate(string(errb), 512))), err)
	}
	st, statErr := os.Stat(outPath)
	if statErr != nil || st.Size() == 0 {
		return common.RenderError("page 1 out of range: no image produced", statErr)
	}
	return nil
}

func transcodeToPNG(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return common.RenderError("open image", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return common.RenderError("decode image", err)
	}

	dst, err := os.Create(out)
	if err != nil {
		return common.RenderError("create output image", err)
	}
	if err := png.Encode(dst, img); err != nil {
		_ = dst.Close()
		return common.RenderError("encode png", err)
	}
	if err := dst.Close(); err != nil {
		return common.RenderError("close output image", err)
	}
	return nil
}
