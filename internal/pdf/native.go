package pdf

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

// wordGapRatio is the horizontal gap, relative to the font size, above which
// two glyph runs on one baseline belong to different words.
const wordGapRatio = 0.15

// NativeSource reads words in process with ledongthuc/pdf. Glyph runs sharing
// a baseline are merged into words; Y is measured from the top of the page so
// that lines sort top to bottom as with pdftotext.
type NativeSource struct{}

// NewNativeSource creates a NativeSource.
func NewNativeSource() *NativeSource {
	return &NativeSource{}
}

// Backend returns BackendNative.
func (s *NativeSource) Backend() Backend {
	return BackendNative
}

// Pages returns the words of each page of the PDF at path.
func (s *NativeSource) Pages(ctx context.Context, path string) (pages [][]layout.Token, err error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &SourceError{Backend: BackendNative, Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	// ledongthuc/pdf panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &SourceError{Backend: BackendNative, Op: "extract", Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		pages = append(pages, pageWords(page.Content().Text, pageHeight(page)))
	}
	return pages, nil
}

// pageHeight returns the MediaBox height, or 0 when the page has none of its
// own. With a zero height Y is simply the negated baseline, which sorts the
// same way.
func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Len() != 4 {
		return 0
	}
	return box.Index(3).Float64() - box.Index(1).Float64()
}

func pageWords(runs []pdf.Text, height float64) []layout.Token {
	var (
		words    []layout.Token
		current  strings.Builder
		start    pdf.Text
		end      float64
		building bool
	)

	flush := func() {
		if building && current.Len() > 0 {
			words = append(words, layout.Token{
				Text: current.String(),
				X:    start.X,
				Y:    height - start.Y,
			})
		}
		current.Reset()
		building = false
	}

	for _, run := range splitRuns(runs) {
		if strings.TrimSpace(run.S) == "" {
			flush()
			continue
		}
		if building {
			gap := run.X - end
			limit := math.Max(run.FontSize, 1) * wordGapRatio
			if run.Y != start.Y || gap > limit || gap < -limit {
				flush()
			}
		}
		if !building {
			start = run
			building = true
		}
		current.WriteString(run.S)
		end = run.X + run.W
	}
	flush()
	return words
}

// splitRuns breaks runs holding several characters with embedded whitespace
// into one run per character, spreading the run width evenly.
func splitRuns(runs []pdf.Text) []pdf.Text {
	out := make([]pdf.Text, 0, len(runs))
	for _, run := range runs {
		n := utf8.RuneCountInString(run.S)
		if n < 2 || !strings.ContainsAny(run.S, " \t") {
			out = append(out, run)
			continue
		}
		width := run.W / float64(n)
		i := 0
		for _, ch := range run.S {
			part := run
			part.S = string(ch)
			part.X = run.X + width*float64(i)
			part.W = width
			out = append(out, part)
			i++
		}
	}
	return out
}
