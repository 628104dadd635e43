// Package rating aggregates five-bucket rating distributions and derives the
// summary figures reported for a set of evaluations.
package rating

import (
	"errors"
	"fmt"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
)

// ErrEmptyRating is returned when a ratio is requested from a rating with no
// responses.
var ErrEmptyRating = errors.New("rating has no responses")

// Rating holds response counts per bucket. Ratings are values: Add returns a
// new Rating and never changes its operands.
type Rating struct {
	Poor         int `json:"poor"`
	BelowAverage int `json:"below_average"`
	Average      int `json:"average"`
	Good         int `json:"good"`
	Excellent    int `json:"excellent"`
}

// Zero returns the rating with no responses.
func Zero() Rating {
	return Rating{}
}

// FromTable builds a rating from an extracted rating table.
func FromTable(t evals.RatingTable) Rating {
	return Rating{
		Poor:         t.Poor,
		BelowAverage: t.BelowAverage,
		Average:      t.Average,
		Good:         t.Good,
		Excellent:    t.Excellent,
	}
}

// Add returns the componentwise sum of r and other.
func (r Rating) Add(other Rating) Rating {
	return Rating{
		Poor:         r.Poor + other.Poor,
		BelowAverage: r.BelowAverage + other.BelowAverage,
		Average:      r.Average + other.Average,
		Good:         r.Good + other.Good,
		Excellent:    r.Excellent + other.Excellent,
	}
}

// Count returns the total number of responses.
func (r Rating) Count() int {
	return r.Poor + r.BelowAverage + r.Average + r.Good + r.Excellent
}

// Slice returns the counts in Poor..Excellent order.
func (r Rating) Slice() []int {
	return []int{r.Poor, r.BelowAverage, r.Average, r.Good, r.Excellent}
}

// Top1 returns the percentage of responses rated Excellent.
func (r Rating) Top1() (float64, error) {
	n := r.Count()
	if n == 0 {
		return 0, ErrEmptyRating
	}
	return 100 * float64(r.Excellent) / float64(n), nil
}

// Top2 returns the percentage of responses rated Good or Excellent.
func (r Rating) Top2() (float64, error) {
	n := r.Count()
	if n == 0 {
		return 0, ErrEmptyRating
	}
	return 100 * float64(r.Excellent+r.Good) / float64(n), nil
}

// Mean returns the average score with Poor = 1 through Excellent = 5.
func (r Rating) Mean() (float64, error) {
	n := r.Count()
	if n == 0 {
		return 0, ErrEmptyRating
	}
	weighted := 1*r.Poor + 2*r.BelowAverage + 3*r.Average + 4*r.Good + 5*r.Excellent
	return float64(weighted) / float64(n), nil
}

// Summary is the roll-up reported for a collection of evaluations.
type Summary struct {
	Top1Percent float64 `json:"Top1_percent"`
	Top2Percent float64 `json:"Top2_percent"`
	Mean        float64 `json:"Mean"`
}

// String formats the summary the way it is written to summary.txt.
func (s Summary) String() string {
	return fmt.Sprintf("Top1: %.2f%%  Top2: %.2f%%  Mean: %.3f", s.Top1Percent, s.Top2Percent, s.Mean)
}

// Sum adds ratings starting from Zero.
func Sum(ratings ...Rating) Rating {
	total := Zero()
	for _, r := range ratings {
		total = total.Add(r)
	}
	return total
}

// Summarize computes the summary of r. It fails with ErrEmptyRating when r has
// no responses.
func Summarize(r Rating) (Summary, error) {
	top1, err := r.Top1()
	if err != nil {
		return Summary{}, err
	}
	top2, err := r.Top2()
	if err != nil {
		return Summary{}, err
	}
	mean, err := r.Mean()
	if err != nil {
		return Summary{}, err
	}
	return Summary{Top1Percent: top1, Top2Percent: top2, Mean: mean}, nil
}

// SummarizeRecords sums the ratings of records and summarizes the total.
func SummarizeRecords(records []evals.Record) (Rating, Summary, error) {
	ratings := make([]Rating, len(records))
	for i, rec := range records {
		ratings[i] = FromTable(rec.RatingTable)
	}
	total := Sum(ratings...)
	summary, err := Summarize(total)
	if err != nil {
		return total, Summary{}, fmt.Errorf("summarize %d records: %w", len(records), err)
	}
	return total, summary, nil
}
