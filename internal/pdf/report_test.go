package pdf

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
	"github.com/a3tai/pdf-eval-reader/internal/layout"
	"github.com/a3tai/pdf-eval-reader/internal/pdf/pdftest"
)

func reportRecord() evals.Record {
	return evals.Record{
		FrontMatter: evals.FrontMatter{Course: "CS4XX-01", Instructor: "Jane Doe", Year: "2020", Semester: "Spring"},
		RatingTable: evals.RatingTable{Mean: "4.10", StdDeviation: "0.95", Count: "25",
			Poor: 1, BelowAverage: 2, Average: 7, Good: 7, Excellent: 10},
	}
}

func extractReport(t *testing.T, pages [][]layout.Token) evals.Record {
	t.Helper()
	e := evals.NewExtractor(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	record, err := e.ProcessDocument(pages)
	require.NoError(t, err)
	return record
}

func TestValidator_ValidReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	pdftest.WriteReport(t, path)

	v := NewValidator(1 << 20)
	require.NoError(t, v.ValidateFile(path))

	n, err := v.PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNativeSource_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	pdftest.WriteReport(t, path)

	pages, err := NewNativeSource().Pages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	for i, want := range pdftest.ReportPages {
		assert.Equal(t, want, layout.ReconstructLines(pages[i]), "page %d", i+1)
	}
	assert.Equal(t, reportRecord(), extractReport(t, pages))
}

// bboxDocument renders pages the way pdftotext -bbox does, one word element
// per space separated word.
func bboxDocument(pages [][]string) string {
	var b strings.Builder
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"><head><title>report</title></head><body><doc>` + "\n")
	for _, lines := range pages {
		b.WriteString(`<page width="612.000000" height="792.000000">` + "\n")
		for row, line := range lines {
			y := 72 + float64(row)*14
			for col, word := range strings.Split(line, " ") {
				fmt.Fprintf(&b, `<word xMin="%f" yMin="%f" xMax="%f" yMax="%f">%s</word>`+"\n",
					72+float64(col)*30, y, 100+float64(col)*30, y+10, html.EscapeString(word))
			}
		}
		b.WriteString("</page>\n")
	}
	b.WriteString("</doc></body></html>\n")
	return b.String()
}

func TestBBoxSource_Report(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}

	dir := t.TempDir()
	fixture := filepath.Join(dir, "report.xml")
	require.NoError(t, os.WriteFile(fixture, []byte(bboxDocument(pdftest.ReportPages)), 0o644))

	converter := filepath.Join(dir, "pdftotext")
	script := fmt.Sprintf("#!/bin/sh\n[ \"$1\" = -htmlmeta ] && [ \"$2\" = -bbox ] || exit 3\ncat %q > \"$4\"\n", fixture)
	require.NoError(t, os.WriteFile(converter, []byte(script), 0o755))

	path := filepath.Join(dir, "report.pdf")
	pdftest.WriteReport(t, path)

	tempDir := t.TempDir()
	pages, err := NewBBoxSource(converter, tempDir).Pages(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, pdftest.ReportPages[1], layout.ReconstructLines(pages[1]))
	assert.Equal(t, reportRecord(), extractReport(t, pages))

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary xml must be removed")
}

func TestBBoxSource_ConverterFails(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}

	dir := t.TempDir()
	converter := filepath.Join(dir, "pdftotext")
	require.NoError(t, os.WriteFile(converter, []byte("#!/bin/sh\necho 'Syntax Error: broken' >&2\nexit 1\n"), 0o755))

	path := filepath.Join(dir, "report.pdf")
	pdftest.WriteReport(t, path)

	_, err := NewBBoxSource(converter, t.TempDir()).Pages(context.Background(), path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "Syntax Error: broken")
	assert.NotErrorIs(t, err, ErrConverterNotFound)
}
