// Package layout rebuilds visual text lines from positioned words.
//
// Grouping relies on exact equality of the vertical coordinate. The report
// template these lines come from is rendered by a single converter run, so
// words on one visual row always carry the same Y. No tolerance band is
// applied: tokens whose Y differs by any amount land on different lines.
package layout

import (
	"sort"
	"strings"
)

// noResultsSentinel is printed by the survey tool on reports that have not
// collected any responses.
const noResultsSentinel = "There are no results yet to show. Please distribute your survey to gather responses."

// Token is a positioned word on a page. X and Y are the minimum corner of the
// word's bounding box, with Y growing towards the bottom of the page.
type Token struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ReconstructLines groups the tokens of one page into lines ordered top to
// bottom. Each line holds the texts of the tokens sharing one Y, ordered left
// to right and joined by a single space.
//
// The input slice is not modified. A leading "no results yet" line is removed
// rather than causing the page to be skipped so that line indexes used by the
// extractors stay meaningful.
func ReconstructLines(tokens []Token) []string {
	if len(tokens) == 0 {
		return nil
	}

	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []string
	current := make([]string, 0, 8)
	lastY := sorted[0].Y
	for _, tok := range sorted {
		if tok.Y != lastY {
			lines = append(lines, strings.Join(current, " "))
			current = current[:0]
			lastY = tok.Y
		}
		current = append(current, tok.Text)
	}
	lines = append(lines, strings.Join(current, " "))

	if lines[0] == noResultsSentinel {
		lines = lines[1:]
	}
	return lines
}

