// Package render turns an uploaded document into the single image sent to the
// extraction service.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var ErrUnsupported = errors.New("unsupported document type")

// Runner lets tests stub the external rasteriser.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)

	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Error("render.exec.failed",
			"cmd", name,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
			"stderr", truncate(errb.String(), 4<<10),
		)
	} else {
		r.logger.Debug("render.exec.ok",
			"cmd", name,
			"args", strings.Join(args, " "),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "...(truncated)"
}

type Renderer struct {
	pdftoppm string
	dpi      int
	runner   Runner
	logger   *slog.Logger
}

type Option func(*Renderer)

func WithRunner(r Runner) Option {
	return func(rd *Renderer) { rd.runner = r }
}

func WithDPI(dpi int) Option {
	return func(rd *Renderer) { rd.dpi = dpi }
}

// New returns a Renderer that shells out to pdftoppm (binary name or path).
func New(pdftoppm string, logger *slog.Logger, opts ...Option) *Renderer {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}

	if logger == nil {
		logger = slog.Default()
	}

	r := &Renderer{
		pdftoppm: pdftoppm,
		dpi:      150,
		runner:   execRunner{logger: logger},
		logger:   logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FirstPage returns an image of the document and its MIME type. Images pass
// through unchanged; PDFs are rasterised to a PNG of their first page.
func (r *Renderer) FirstPage(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
	switch contentType {
	case "image/png", "image/jpeg":
		return data, contentType, nil
	case "application/pdf":
		img, err := r.pdfFirstPage(ctx, data)
		if err != nil {
			return nil, "", err
		}

		return img, "image/png", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}
}

func (r *Renderer) pdfFirstPage(ctx context.Context, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "invoice-render-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")

	// pdftoppm -f 1 -l 1 -singlefile -png -r <dpi> in.pdf <tmp>/page  ->  <tmp>/page.png
	_, errb, err := r.runner.Run(ctx, r.pdftoppm,
		"-f", "1", "-l", "1", "-singlefile", "-png", "-r", strconv.Itoa(r.dpi), in, prefix)
	if err != nil {
		return nil, fmt.Errorf("rendering pdf: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("reading rendered page: %w", err)
	}

	return img, nil
}
