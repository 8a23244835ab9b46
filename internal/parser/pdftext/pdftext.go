// Package pdftext turns fetched maintenance guides into plain text.
//
// Extraction prefers the poppler pdftotext binary in layout mode, which keeps
// table columns apart. When the binary is missing or fails, a naive scanner
// pulls string operands out of BT/ET text objects, inflating Flate streams
// first.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Method names how text was obtained.
type Method string

// Extraction methods.
const (
	MethodPlain     Method = "plain"
	MethodPdftotext Method = "pdftotext"
	MethodNaive     Method = "naive"
)

const defaultTimeout = 30 * time.Second

var pdfMagic = []byte("%PDF-")

// Extractor converts document bodies to text.
type Extractor struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

// New returns an Extractor that runs binary (default "pdftotext").
func New(binary string, timeout time.Duration, logger *zap.Logger) *Extractor {
	if binary == "" {
		binary = "pdftotext"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{binary: binary, timeout: timeout, logger: logger}
}

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic)
}

// Extract returns the text of data. Non-PDF payloads are returned unchanged.
// An error is returned only when ctx is done.
func (e *Extractor) Extract(ctx context.Context, data []byte) ([]byte, Method, error) {
	if !IsPDF(data) {
		return data, MethodPlain, nil
	}
	text, err := e.runPdftotext(ctx, data)
	if err == nil && len(bytes.TrimSpace(text)) > 0 {
		return text, MethodPdftotext, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}
	if err != nil {
		e.logger.Debug("pdftotext unavailable, using naive extraction", zap.Error(err))
	}
	return Naive(data), MethodNaive, nil
}

func (e *Extractor) runPdftotext(ctx context.Context, data []byte) ([]byte, error) {
	path, err := exec.LookPath(e.binary)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", e.binary, err)
	}

	tmp, err := os.CreateTemp("", "maint-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp pdf: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp pdf: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, path, "-layout", tmp.Name(), "-")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("pdftotext timed out after %s", e.timeout)
		}
		return nil, fmt.Errorf("pdftotext: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
