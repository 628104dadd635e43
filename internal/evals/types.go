// Package evals recognises the two parts of a course evaluation report that
// carry data: the title line on the front page and the overall instructor
// rating table. Everything else on a page is rejected.
package evals

import (
	"errors"
	"fmt"
	"strconv"
)

// FrontMatter is the course and term information printed on the first page.
type FrontMatter struct {
	Course     string `json:"course"`
	Instructor string `json:"instructor"`
	Year       string `json:"year"`
	Semester   string `json:"semester"`
}

// RatingTable is the overall instructor rating section. Mean, StdDeviation
// and Count are kept exactly as printed.
type RatingTable struct {
	Mean         string `json:"mean"`
	StdDeviation string `json:"std_deviation"`
	Count        string `json:"count"`
	Poor         int    `json:"poor"`
	BelowAverage int    `json:"below_average"`
	Average      int    `json:"average"`
	Good         int    `json:"good"`
	Excellent    int    `json:"excellent"`
}

// Record is the merged result for one report.
type Record struct {
	FrontMatter
	RatingTable

	// Source is the file the record was extracted from.
	Source string `json:"-"`
}

// FieldNames lists the exported record fields in output order.
var FieldNames = []string{
	"course", "instructor", "year", "semester",
	"mean", "std_deviation", "count",
	"poor", "below_average", "average", "good", "excellent",
}

// Fields returns the record keyed by its output field names.
func (r Record) Fields() map[string]string {
	return map[string]string{
		"course":        r.Course,
		"instructor":    r.Instructor,
		"year":          r.Year,
		"semester":      r.Semester,
		"mean":          r.Mean,
		"std_deviation": r.StdDeviation,
		"count":         r.Count,
		"poor":          strconv.Itoa(r.Poor),
		"below_average": strconv.Itoa(r.BelowAverage),
		"average":       strconv.Itoa(r.Average),
		"good":          strconv.Itoa(r.Good),
		"excellent":     strconv.Itoa(r.Excellent),
	}
}

// ErrNoMatch is returned when a page is not the kind of page asked for.
// All page level errors wrap it.
var ErrNoMatch = errors.New("page does not match")

var (
	ErrTooFewLines          = fmt.Errorf("%w: too few lines", ErrNoMatch)
	ErrSeparatorNotFound    = fmt.Errorf("%w: front matter separator not found", ErrNoMatch)
	ErrMalformedFrontMatter = fmt.Errorf("%w: malformed front matter", ErrNoMatch)
	ErrNotRatingPage        = fmt.Errorf("%w: not a rating table page", ErrNoMatch)
	ErrMalformedRating      = fmt.Errorf("%w: malformed rating table", ErrNoMatch)
)

// ErrNoRecord is returned when a document yields no record. Document level
// errors wrap it.
var ErrNoRecord = errors.New("document produced no record")

var (
	ErrNoPages            = fmt.Errorf("%w: no pages", ErrNoRecord)
	ErrNoFrontMatter      = fmt.Errorf("%w: front matter not recognized", ErrNoRecord)
	ErrMissingFrontMatter = fmt.Errorf("%w: rating table found but no front matter", ErrNoRecord)
	ErrNoRatingTable      = fmt.Errorf("%w: no rating table found", ErrNoRecord)
)
