// Package pdf turns evaluation report PDFs into positioned words, one slice of
// tokens per page, and finds the reports to process.
package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

// TokenSource reads the positioned words of every page of a PDF.
type TokenSource interface {
	Pages(ctx context.Context, path string) ([][]layout.Token, error)
	Backend() Backend
}

// Backend names a TokenSource implementation.
type Backend string

const (
	// BackendPdftotext runs poppler's pdftotext in bounding box mode.
	BackendPdftotext Backend = "pdftotext"
	// BackendNative reads the PDF in process with ledongthuc/pdf.
	BackendNative Backend = "native"
)

// SupportedBackends lists the accepted backend names.
func SupportedBackends() []Backend {
	return []Backend{BackendPdftotext, BackendNative}
}

// SourceError reports a failure of a token source.
type SourceError struct {
	Backend Backend `json:"backend"`
	Op      string  `json:"operation"`
	Path    string  `json:"path,omitempty"`
	Err     error   `json:"error"`
}

func (e *SourceError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

var (
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrConverterNotFound  = errors.New("pdftotext not found; install poppler-utils")
)

// SourceOptions configures NewSource.
type SourceOptions struct {
	Backend Backend
	// PdftotextPath is the converter binary for BackendPdftotext.
	PdftotextPath string
	// TempDir holds the converter's intermediate files. Empty means os.TempDir.
	TempDir string
}

// NewSource creates the token source selected by opts.Backend.
func NewSource(opts SourceOptions) (TokenSource, error) {
	switch opts.Backend {
	case BackendPdftotext, "":
		return NewBBoxSource(opts.PdftotextPath, opts.TempDir), nil
	case BackendNative:
		return NewNativeSource(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, opts.Backend)
	}
}
