package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
)

// WriteJSON writes records as an indented JSON array. No records is "[]".
func WriteJSON(path string, records []evals.Record) error {
	data, err := marshalRecords(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// EncodeJSON writes records to w in the WriteJSON format, newline terminated.
func EncodeJSON(w io.Writer, records []evals.Record) error {
	data, err := marshalRecords(records)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func marshalRecords(records []evals.Record) ([]byte, error) {
	if records == nil {
		records = []evals.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}

// ReadJSON loads a file written by WriteJSON.
func ReadJSON(path string) ([]evals.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var records []evals.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}
