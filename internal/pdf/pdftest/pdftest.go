// Package pdftest writes small evaluation report PDFs for tests. Pages are
// plain Helvetica text, one line per baseline, with a hand-built xref table.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	pageWidth  = 612
	pageHeight = 792
	fontSize   = 10
	lineHeight = 14
	marginLeft = 72
	marginTop  = 72
)

// ReportPages is a complete report: the front page followed by the overall
// instructor rating page.
var ReportPages = [][]string{
	{
		"Course Evaluation Report",
		"2020 Spring Evals - CS4XX-01 Jane Doe",
	},
	{
		"15 Taking everything into account, the instructor was:",
		"Field Mean Std Deviation Count",
		"15 Taking everything into account, the instructor was: 4.10 0.95 25",
		"Answer % Count",
		"Poor (1) Below Average (2) Average (7) Good (7) Excellent (10)",
	},
}

// Baseline returns the PDF baseline of line i, counted from the top.
func Baseline(i int) float64 {
	return float64(pageHeight - marginTop - i*lineHeight)
}

// Build returns a PDF with one page per element of pages.
func Build(pages [][]string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := strings.TrimSpace(strings.Repeat("500 ", 126-32+1))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding " +
		"/FirstChar 32 /LastChar 126 /Widths [" + widths + "] >>")

	for i, lines := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", pageWidth, pageHeight, 5+2*i))

		var content strings.Builder
		for n, line := range lines {
			fmt.Fprintf(&content, "BT\n/F1 %d Tf\n%d %g Td\n(%s) Tj\nET\n", fontSize, marginLeft, Baseline(n), escape(line))
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(s)
}

// Write writes Build(pages) to path, creating parent directories.
func Write(t testing.TB, path string, pages [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, Build(pages), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteReport writes ReportPages to path.
func WriteReport(t testing.TB, path string) {
	t.Helper()
	Write(t, path, ReportPages)
}
