package output

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/rating"
)

const (
	resultsSheet = "Results"
	summarySheet = "Summary"
)

var xlsxHeaders = []string{
	"Year", "Semester", "Course", "Instructor",
	"Mean", "Std Deviation", "Count",
	"Poor", "Below Average", "Average", "Good", "Excellent",
	"Source",
}

// WriteXLSX writes a workbook with a Results sheet, one row per record, and a
// Summary sheet when summary is not nil.
func WriteXLSX(path string, records []evals.Record, summary *rating.Summary) error {
	data, err := BuildXLSX(records, summary)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// BuildXLSX returns the workbook WriteXLSX would write.
func BuildXLSX(records []evals.Record, summary *rating.Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(resultsSheet, cell, h)
	}

	ratings := make([]rating.Rating, len(records))
	for i, r := range records {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(resultsSheet, cell, v)
		}
		write(1, r.Year)
		write(2, r.Semester)
		write(3, r.Course)
		write(4, r.Instructor)
		write(5, r.Mean)
		write(6, r.StdDeviation)
		write(7, r.Count)
		ratings[i] = rating.FromTable(r.RatingTable)
		// Poor..Excellent in columns H..L
		for j, n := range ratings[i].Slice() {
			write(8+j, n)
		}
		write(13, r.Source)
	}

	_ = f.SetColWidth(resultsSheet, "A", "B", 12)
	_ = f.SetColWidth(resultsSheet, "C", "C", 18)
	_ = f.SetColWidth(resultsSheet, "D", "D", 24)
	_ = f.SetColWidth(resultsSheet, "E", "L", 12)
	_ = f.SetColWidth(resultsSheet, "M", "M", 60)

	if summary != nil {
		if _, err := f.NewSheet(summarySheet); err != nil {
			return nil, fmt.Errorf("xlsx sheet: %w", err)
		}
		total := rating.Sum(ratings...)
		rows := [][]any{
			{"Documents", len(records)},
			{"Responses", total.Count()},
			{"Top1 %", summary.Top1Percent},
			{"Top2 %", summary.Top2Percent},
			{"Mean", summary.Mean},
		}
		for i, row := range rows {
			for j, v := range row {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				_ = f.SetCellValue(summarySheet, cell, v)
			}
		}
		_ = f.SetColWidth(summarySheet, "A", "A", 14)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
