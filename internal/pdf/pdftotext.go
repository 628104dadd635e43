package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

// DefaultPdftotext is the converter looked up on PATH when none is configured.
const DefaultPdftotext = "pdftotext"

// BBoxSource converts PDFs with "pdftotext -htmlmeta -bbox" and parses the
// word boxes it writes.
type BBoxSource struct {
	binary  string
	tempDir string
}

// NewBBoxSource creates a source running binary. Intermediate files are
// created in tempDir, or os.TempDir when empty.
func NewBBoxSource(binary, tempDir string) *BBoxSource {
	if binary == "" {
		binary = DefaultPdftotext
	}
	return &BBoxSource{binary: binary, tempDir: tempDir}
}

// Backend returns BackendPdftotext.
func (s *BBoxSource) Backend() Backend {
	return BackendPdftotext
}

// Pages converts the PDF at path and returns the words of each page.
func (s *BBoxSource) Pages(ctx context.Context, path string) ([][]layout.Token, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &SourceError{Backend: BackendPdftotext, Op: "stat", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(s.tempDir, "eval-*.xml")
	if err != nil {
		return nil, &SourceError{Backend: BackendPdftotext, Op: "create_temp", Path: path, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, s.binary, "-htmlmeta", "-bbox", path, tmpPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			err = ErrConverterNotFound
		} else if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &SourceError{Backend: BackendPdftotext, Op: "convert", Path: path, Err: err}
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, &SourceError{Backend: BackendPdftotext, Op: "read", Path: path, Err: err}
	}
	defer f.Close()

	pages, err := ParseBBox(f)
	if err != nil {
		return nil, &SourceError{Backend: BackendPdftotext, Op: "parse", Path: path, Err: err}
	}
	return pages, nil
}
