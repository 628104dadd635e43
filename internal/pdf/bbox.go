package pdf

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

// ParseBBox reads the XHTML written by "pdftotext -bbox" and returns the words
// of each page. Every element nested in a page element is a word: its text is
// the character data before its first child and its position comes from the
// xMin and yMin attributes, which default to 0 when absent. Namespaces are
// ignored, so both XHTML and bare output are accepted.
func ParseBBox(r io.Reader) ([][]layout.Token, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	type open struct {
		idx    int
		sealed bool
	}

	var (
		pages  [][]layout.Token
		page   []layout.Token
		inPage bool
		stack  []open
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse bbox xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if !inPage {
				if el.Name.Local == "page" {
					inPage = true
					page = []layout.Token{}
				}
				continue
			}
			if n := len(stack); n > 0 {
				stack[n-1].sealed = true
			}
			word, err := wordToken(el)
			if err != nil {
				return nil, err
			}
			page = append(page, word)
			stack = append(stack, open{idx: len(page) - 1})

		case xml.EndElement:
			if !inPage {
				continue
			}
			if len(stack) == 0 {
				pages = append(pages, page)
				inPage = false
				continue
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if n := len(stack); n > 0 && !stack[n-1].sealed {
				page[stack[n-1].idx].Text += string(el)
			}
		}
	}

	if inPage {
		pages = append(pages, page)
	}
	for _, p := range pages {
		for i := range p {
			p[i].Text = strings.TrimSpace(p[i].Text)
		}
	}
	return pages, nil
}

func wordToken(el xml.StartElement) (layout.Token, error) {
	var tok layout.Token
	for _, attr := range el.Attr {
		var dst *float64
		switch attr.Name.Local {
		case "xMin":
			dst = &tok.X
		case "yMin":
			dst = &tok.Y
		default:
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(attr.Value), 64)
		if err != nil {
			return tok, fmt.Errorf("parse bbox xml: %s=%q: %w", attr.Name.Local, attr.Value, err)
		}
		*dst = v
	}
	return tok, nil
}
