package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
)

// WriteCSV writes one row per record under a header of the sorted field
// names. With no records the file is created empty.
func WriteCSV(path string, records []evals.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if len(records) == 0 {
		return nil
	}

	header := append([]string(nil), evals.FieldNames...)
	sort.Strings(header)

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, r := range records {
		row := r.Fields()
		line := make([]string, len(header))
		for i, k := range header {
			line[i] = row[k]
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
