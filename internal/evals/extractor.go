package evals

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/a3tai/pdf-eval-reader/internal/layout"
)

// Fixed strings of the supported report template. Changing any of them is a
// change of report format.
const (
	ratingTitle  = "15 Taking everything into account, the instructor was:"
	ratingHeader = "Field Mean Std Deviation Count"

	// The statistics row repeats the question text and must extend at least
	// two bytes past it before its values start.
	statsOffset = len(ratingTitle) + 2

	distributionTokens = 11
)

// distributionLabels holds the expected label at each non-count position of
// the distribution row.
var distributionLabels = []struct {
	pos   int
	label string
}{
	{0, "Poor"},
	{2, "Below"},
	{3, "Average"},
	{5, "Average"},
	{7, "Good"},
	{9, "Excellent"},
}

// Positions of the parenthesised counts in the distribution row, in
// Poor..Excellent order.
var distributionCounts = [5]int{1, 4, 6, 8, 10}

// separatorRule splits the front page title line into its term part and its
// course part.
type separatorRule struct {
	name  string
	split func(line string) (before, after string, ok bool)
}

func cutAt(literal string) func(string) (string, string, bool) {
	return func(line string) (string, string, bool) {
		return strings.Cut(line, literal)
	}
}

// frontMatterRules are tried in order; the first one found in the line wins.
// The "CS" fallback covers reports whose title has no "Evals -" marker. It
// consumes the literal, so the course code loses its "CS" prefix.
var frontMatterRules = []separatorRule{
	{name: "evals", split: cutAt("Evals -")},
	{name: "eval", split: cutAt("Eval -")},
	{name: "evaluation", split: cutAt("Evaluation -")},
	{name: "course-code", split: cutAt("CS")},
}

// Extractor turns the lines of report pages into records. Diagnostics are
// written to its logger and never stop processing.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor that reports diagnostics to logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractFrontMatter reads the term and course from the second line of the
// first page, e.g. "2020 Spring Evals - CS4XX-01 Jane Doe".
func (e *Extractor) ExtractFrontMatter(lines []string) (FrontMatter, error) {
	if len(lines) < 2 {
		return FrontMatter{}, ErrTooFewLines
	}
	line := lines[1]

	var before, after string
	found := false
	for _, rule := range frontMatterRules {
		if before, after, found = rule.split(line); found {
			e.logger.Debug("front matter separator", "rule", rule.name)
			break
		}
	}
	if !found {
		e.logger.Error("front matter separator not found", "line", line)
		return FrontMatter{}, fmt.Errorf("%w: %q", ErrSeparatorNotFound, line)
	}

	year, semester, ok := strings.Cut(strings.TrimSpace(before), " ")
	if !ok {
		return FrontMatter{}, fmt.Errorf("%w: no semester in %q", ErrMalformedFrontMatter, line)
	}

	fm := FrontMatter{Year: year, Semester: strings.TrimSpace(semester)}
	if i := strings.Index(after, ")"); i >= 0 {
		fm.Course = strings.TrimSpace(after[:i+1])
		fm.Instructor = strings.TrimSpace(after[i+1:])
		return fm, nil
	}

	course, instructor, ok := strings.Cut(strings.TrimSpace(after), " ")
	if !ok {
		return FrontMatter{}, fmt.Errorf("%w: no instructor in %q", ErrMalformedFrontMatter, line)
	}
	fm.Course = course
	fm.Instructor = strings.TrimSpace(instructor)
	return fm, nil
}

// ExtractRatingTable reads the overall instructor rating section. The page
// must start with the section title followed by the column header; any other
// page returns ErrNotRatingPage.
func (e *Extractor) ExtractRatingTable(lines []string) (RatingTable, error) {
	if len(lines) < 2 || lines[0] != ratingTitle || lines[1] != ratingHeader {
		return RatingTable{}, ErrNotRatingPage
	}
	body := lines[2:]
	if len(body) == 0 {
		return RatingTable{}, fmt.Errorf("%w: missing statistics row", ErrMalformedRating)
	}

	row := body[0]
	if len(row) <= statsOffset {
		return RatingTable{}, fmt.Errorf("%w: statistics row %q", ErrMalformedRating, row)
	}
	// Only whole tokens after the question text are taken as values.
	values := strings.Split(row[len(ratingTitle):], " ")
	if len(values) < 4 {
		return RatingTable{}, fmt.Errorf("%w: statistics row %q", ErrMalformedRating, row)
	}
	values = values[len(values)-3:]

	table := RatingTable{
		Mean:         values[0],
		StdDeviation: values[1],
		Count:        values[2],
	}

	counts, err := parseDistribution(body[len(body)-1])
	if err != nil {
		return RatingTable{}, err
	}
	table.Poor = counts[0]
	table.BelowAverage = counts[1]
	table.Average = counts[2]
	table.Good = counts[3]
	table.Excellent = counts[4]
	return table, nil
}

// parseDistribution reads
// "Poor (1) Below Average (2) Average (7) Good (7) Excellent (10)".
func parseDistribution(line string) ([5]int, error) {
	var counts [5]int

	tokens := strings.Split(line, " ")
	if len(tokens) != distributionTokens {
		return counts, fmt.Errorf("%w: distribution row has %d tokens", ErrMalformedRating, len(tokens))
	}
	for _, want := range distributionLabels {
		if tokens[want.pos] != want.label {
			return counts, fmt.Errorf("%w: expected %q at position %d, got %q",
				ErrMalformedRating, want.label, want.pos, tokens[want.pos])
		}
	}

	for i, pos := range distributionCounts {
		tok := tokens[pos]
		if len(tok) < 2 || tok[0] != '(' || tok[len(tok)-1] != ')' {
			return counts, fmt.Errorf("%w: count %q is not parenthesised", ErrMalformedRating, tok)
		}
		n, err := strconv.Atoi(tok[1 : len(tok)-1])
		if err != nil {
			return counts, fmt.Errorf("%w: count %q: %v", ErrMalformedRating, tok, err)
		}
		if n < 0 {
			return counts, fmt.Errorf("%w: negative count %q", ErrMalformedRating, tok)
		}
		counts[i] = n
	}
	return counts, nil
}

// ProcessDocument extracts the record of one report. Front matter is read
// from the first page only; the rating table from the first later page that
// matches. A document missing either half yields an error wrapping
// ErrNoRecord.
func (e *Extractor) ProcessDocument(pages [][]layout.Token) (Record, error) {
	if len(pages) == 0 {
		return Record{}, ErrNoPages
	}

	front, frontErr := e.ExtractFrontMatter(layout.ReconstructLines(pages[0]))
	if frontErr != nil {
		e.logger.Warn("front page did not match", "error", frontErr)
	}

	for i := 1; i < len(pages); i++ {
		table, err := e.ExtractRatingTable(layout.ReconstructLines(pages[i]))
		if err != nil {
			if !errors.Is(err, ErrNotRatingPage) {
				e.logger.Warn("rating page rejected", "page", i+1, "error", err)
			}
			continue
		}

		if frontErr != nil {
			e.logger.Warn("rating table found but no front matter", "page", i+1)
			return Record{}, fmt.Errorf("%w (%v)", ErrMissingFrontMatter, frontErr)
		}
		e.logger.Debug("rating table found", "page", i+1, "course", front.Course)
		return Record{FrontMatter: front, RatingTable: table}, nil
	}

	if frontErr != nil {
		return Record{}, fmt.Errorf("%w (%v)", ErrNoFrontMatter, frontErr)
	}
	return Record{}, ErrNoRatingTable
}
