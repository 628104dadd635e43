package output

import (
	"fmt"
	"os"

	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

// WriteSummary writes the one line summary file.
func WriteSummary(path string, summary rating.Summary) error {
	if err := os.WriteFile(path, []byte(summary.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
