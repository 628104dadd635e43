package pdf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

const bboxSample = `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>report</title>
<meta name="Producer" content="Qualtrics &amp; Co"/>
<meta http-equiv="Content-Type" content="text/html; charset=UTF-8"/>
</head>
<body>
<doc>
  <page width="612.000000" height="792.000000">
    <word xMin="72.000000" yMin="40.500000" xMax="120.000000" yMax="52.500000">Course</word>
    <word xMin="124.000000" yMin="40.500000" xMax="200.000000" yMax="52.500000">Evaluation</word>
    <word xMin="72.000000" yMin="60.000000" xMax="100.000000" yMax="72.000000">2020</word>
    <word xMin="104.000000" yMin="60.000000" xMax="140.000000" yMax="72.000000">Spring</word>
  </page>
  <page width="612.000000" height="792.000000">
    <word xMin="72.000000" yMin="40.000000" xMax="90.000000" yMax="52.000000">R&amp;D</word>
    <word yMin="41.000000">nox</word>
  </page>
</doc>
</body>
</html>
`

func TestParseBBox(t *testing.T) {
	pages, err := ParseBBox(strings.NewReader(bboxSample))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, []layout.Token{
		{Text: "Course", X: 72, Y: 40.5},
		{Text: "Evaluation", X: 124, Y: 40.5},
		{Text: "2020", X: 72, Y: 60},
		{Text: "Spring", X: 104, Y: 60},
	}, pages[0])

	assert.Equal(t, []layout.Token{
		{Text: "R&D", X: 72, Y: 40},
		{Text: "nox", X: 0, Y: 41},
	}, pages[1])

	assert.Equal(t, []string{"Course Evaluation", "2020 Spring"}, layout.ReconstructLines(pages[0]))
}

func TestParseBBox_BareDocument(t *testing.T) {
	doc := `<doc><page><word xMin="1" yMin="2">a</word></page><page></page></doc>`

	pages, err := ParseBBox(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, []layout.Token{{Text: "a", X: 1, Y: 2}}, pages[0])
	assert.Empty(t, pages[1])
}

func TestParseBBox_NestedElementsAreWords(t *testing.T) {
	doc := `<doc><page><flow><word xMin="3" yMin="4">b</word></flow></page></doc>`

	pages, err := ParseBBox(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, []layout.Token{
		{Text: "", X: 0, Y: 0},
		{Text: "b", X: 3, Y: 4},
	}, pages[0])
}

func TestParseBBox_NoPages(t *testing.T) {
	pages, err := ParseBBox(strings.NewReader(`<html><body><doc></doc></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestParseBBox_BadCoordinate(t *testing.T) {
	_, err := ParseBBox(strings.NewReader(`<doc><page><word xMin="abc" yMin="1">x</word></page></doc>`))
	assert.Error(t, err)
}

func TestBBoxSource_ConverterMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	src := NewBBoxSource("pdftotext-does-not-exist-here", dir)
	_, err := src.Pages(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConverterNotFound)

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, BackendPdftotext, srcErr.Backend)
	assert.Equal(t, "convert", srcErr.Op)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary xml must be removed")
}

func TestBBoxSource_MissingInput(t *testing.T) {
	src := NewBBoxSource("", t.TempDir())
	_, err := src.Pages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))

	var srcErr *SourceError
	require.ErrorAs(t, err, &srcErr)
	assert.Equal(t, "stat", srcErr.Op)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(SourceOptions{Backend: BackendPdftotext})
	require.NoError(t, err)
	assert.Equal(t, BackendPdftotext, src.Backend())

	src, err = NewSource(SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, BackendPdftotext, src.Backend())

	src, err = NewSource(SourceOptions{Backend: BackendNative})
	require.NoError(t, err)
	assert.Equal(t, BackendNative, src.Backend())

	_, err = NewSource(SourceOptions{Backend: "ocr"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)

	assert.Len(t, SupportedBackends(), 2)
}
