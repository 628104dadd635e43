package rating

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-eval-reader/internal/evals"
)

func randomRating(rng *rand.Rand) Rating {
	return Rating{
		Poor:         rng.Intn(50),
		BelowAverage: rng.Intn(50),
		Average:      rng.Intn(50),
		Good:         rng.Intn(50),
		Excellent:    rng.Intn(50),
	}
}

func TestZero(t *testing.T) {
	assert.Equal(t, 0, Zero().Count())
	assert.Equal(t, []int{0, 0, 0, 0, 0}, Zero().Slice())
}

func TestAdd(t *testing.T) {
	a := Rating{Poor: 1, BelowAverage: 2, Average: 3, Good: 4, Excellent: 5}
	b := Rating{Poor: 10, BelowAverage: 20, Average: 30, Good: 40, Excellent: 50}

	sum := a.Add(b)
	assert.Equal(t, Rating{Poor: 11, BelowAverage: 22, Average: 33, Good: 44, Excellent: 55}, sum)
	assert.Equal(t, 165, sum.Count())

	// operands are untouched
	assert.Equal(t, 15, a.Count())
	assert.Equal(t, 150, b.Count())
	assert.Equal(t, a, a.Add(Zero()))
}

func TestAdd_Algebra(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		a, b, c := randomRating(rng), randomRating(rng), randomRating(rng)

		assert.Equal(t, a.Add(b).Add(c), a.Add(b.Add(c)), "associativity")
		assert.Equal(t, a.Add(b), b.Add(a), "commutativity")
		assert.Equal(t, a.Count()+b.Count(), a.Add(b).Count())
	}
}

func TestDerivedMetrics(t *testing.T) {
	r := Rating{Good: 3, Excellent: 7}

	top1, err := r.Top1()
	require.NoError(t, err)
	assert.InDelta(t, 70.0, top1, 1e-9)

	top2, err := r.Top2()
	require.NoError(t, err)
	assert.InDelta(t, 100.0, top2, 1e-9)

	mean, err := r.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 4.7, mean, 1e-9)
}

func TestDerivedMetrics_RealDivision(t *testing.T) {
	r := Rating{Poor: 1, Average: 1, Excellent: 1}

	top1, err := r.Top1()
	require.NoError(t, err)
	assert.InDelta(t, 100.0/3, top1, 1e-9)

	mean, err := r.Mean()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, mean, 1e-9)
}

func TestDerivedMetrics_Empty(t *testing.T) {
	_, err := Zero().Top1()
	assert.ErrorIs(t, err, ErrEmptyRating)

	_, err = Zero().Top2()
	assert.ErrorIs(t, err, ErrEmptyRating)

	_, err = Zero().Mean()
	assert.ErrorIs(t, err, ErrEmptyRating)

	_, err = Summarize(Zero())
	assert.ErrorIs(t, err, ErrEmptyRating)
}

func TestSummarize(t *testing.T) {
	total := Sum(
		Rating{Good: 1, Excellent: 3},
		Rating{Good: 2, Excellent: 4},
	)
	assert.Equal(t, Rating{Good: 3, Excellent: 7}, total)

	summary, err := Summarize(total)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, summary.Top1Percent, 1e-9)
	assert.InDelta(t, 100.0, summary.Top2Percent, 1e-9)
	assert.InDelta(t, 4.7, summary.Mean, 1e-9)
	assert.Equal(t, "Top1: 70.00%  Top2: 100.00%  Mean: 4.700", summary.String())
}

func TestSummarizeRecords(t *testing.T) {
	records := []evals.Record{
		{RatingTable: evals.RatingTable{Poor: 1, BelowAverage: 2, Average: 7, Good: 7, Excellent: 10}},
		{RatingTable: evals.RatingTable{Good: 3}},
	}

	total, summary, err := SummarizeRecords(records)
	require.NoError(t, err)
	assert.Equal(t, Rating{Poor: 1, BelowAverage: 2, Average: 7, Good: 10, Excellent: 10}, total)
	assert.InDelta(t, 100*10.0/30, summary.Top1Percent, 1e-9)
	assert.InDelta(t, 100*20.0/30, summary.Top2Percent, 1e-9)

	_, _, err = SummarizeRecords(nil)
	assert.ErrorIs(t, err, ErrEmptyRating)
}
