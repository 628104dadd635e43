// Package output writes extracted records and their summary to disk.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

// File names written into the output directory.
const (
	ResultsJSON = "results.json"
	ResultsCSV  = "results.csv"
	ResultsXLSX = "results.xlsx"
	SummaryText = "summary.txt"
)

// Format is a results file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrResultsExist is returned by CheckOverwrite.
var ErrResultsExist = errors.New("results already exist")

// SupportedFormats returns every format Write understands.
func SupportedFormats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatXLSX}
}

// ParseFormats converts names such as "json" or " CSV " to formats, dropping
// duplicates.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool, len(names))
	var formats []Format
	for _, name := range names {
		f := Format(strings.ToLower(strings.TrimSpace(name)))
		if f == "" || seen[f] {
			continue
		}
		if f.fileName() == "" {
			return nil, fmt.Errorf("unsupported output format %q", name)
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

func (f Format) fileName() string {
	switch f {
	case FormatJSON:
		return ResultsJSON
	case FormatCSV:
		return ResultsCSV
	case FormatXLSX:
		return ResultsXLSX
	}
	return ""
}

// CheckOverwrite refuses to continue when dir already holds results and
// overwrite is off.
func CheckOverwrite(dir string, overwrite bool) error {
	if overwrite {
		return nil
	}
	for _, name := range []string{ResultsJSON, ResultsCSV} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrResultsExist, path)
		}
	}
	return nil
}

// Write stores records in every requested format under dir and, when summary
// is not nil, writes summary.txt. It returns the paths written.
func Write(dir string, formats []Format, records []evals.Record, summary *rating.Summary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	for _, f := range formats {
		path := filepath.Join(dir, f.fileName())
		var err error
		switch f {
		case FormatJSON:
			err = WriteJSON(path, records)
		case FormatCSV:
			err = WriteCSV(path, records)
		case FormatXLSX:
			err = WriteXLSX(path, records, summary)
		default:
			err = fmt.Errorf("unsupported output format %q", f)
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if summary != nil {
		path := filepath.Join(dir, SummaryText)
		if err := WriteSummary(path, *summary); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
