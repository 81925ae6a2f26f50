package accuracy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahm-rule-lab/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// recessionMap builds a monthly indicator starting at start.
func recessionMap(start time.Time, values ...int) domain.RecessionMap {
	m := make(domain.RecessionMap, len(values))
	for i, v := range values {
		m[start.AddDate(0, i, 0)] = v
	}
	return m
}

// pointsCrossingAt returns n monthly points from start that stay at 0
// except for a single 1.0 at each onset month.
func pointsCrossingAt(start time.Time, n int, onsets ...int) []domain.ComputedPoint {
	points := make([]domain.ComputedPoint, n)
	for i := range points {
		points[i] = domain.ComputedPoint{Date: start.AddDate(0, i, 0), Value: domain.Float(0)}
	}
	for _, i := range onsets {
		points[i].Value = domain.Float(1)
	}
	return points
}

func newTestEvaluator() *Evaluator {
	return NewEvaluator(Config{
		AccuracyWindowDays:  30,
		CommitteeWindowDays: 365,
		CommitteeDates:      []time.Time{date(2020, time.June, 8), date(2008, time.December, 1)},
	})
}

func TestEvaluate_PredictionLagsByFifteenDays(t *testing.T) {
	recessions := recessionMap(date(2019, time.December, 1), 0, 0, 1, 1, 1, 0)
	// Onset on 2020-02-16, fifteen days after the 2020-02-01 start.
	points := pointsCrossingAt(date(2019, time.December, 16), 6, 2)

	stats := newTestEvaluator().Evaluate(points, recessions, 0.5)

	require.False(t, stats.NoCrossings)
	assert.Equal(t, []time.Time{date(2020, time.February, 16)}, stats.SignalStarts)
	assert.Equal(t, []time.Time{date(2020, time.February, 1)}, stats.RecessionStarts)
	require.NotNil(t, stats.Accuracy)
	assert.Equal(t, 100, *stats.Accuracy)
	require.NotNil(t, stats.RecessionLeadTime)
	assert.Equal(t, -15, *stats.RecessionLeadTime)
	assert.Equal(t, 0, stats.UnmatchedOnsets)

	// 2020-02-16 -> 2020-06-08 is 113 days.
	require.NotNil(t, stats.CommitteeLeadTime)
	assert.Equal(t, 113, *stats.CommitteeLeadTime)
	assert.Empty(t, stats.Warnings)
}

func TestEvaluate_NoCrossings(t *testing.T) {
	recessions := recessionMap(date(2019, time.December, 1), 0, 1, 0)
	points := pointsCrossingAt(date(2019, time.December, 1), 3)

	stats := newTestEvaluator().Evaluate(points, recessions, 0.5)

	assert.True(t, stats.NoCrossings)
	assert.Nil(t, stats.Accuracy)
	assert.Nil(t, stats.RecessionLeadTime)
	assert.Nil(t, stats.CommitteeLeadTime)
	assert.Len(t, stats.Warnings, 1)
}

func TestEvaluate_UnmatchedOnsetFoldsAsZero(t *testing.T) {
	recessions := recessionMap(date(2019, time.December, 1), 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	// Matched onset at 2020-02-16 (-15 days), unmatched onset at 2020-12-16.
	points := pointsCrossingAt(date(2019, time.December, 16), 14, 2, 12)

	stats := newTestEvaluator().Evaluate(points, recessions, 0.5)

	require.Len(t, stats.SignalStarts, 2)
	assert.Equal(t, 50, *stats.Accuracy)
	// mean(-15, 0) = -7.5, rounded half up.
	assert.Equal(t, -7, *stats.RecessionLeadTime)
	assert.Equal(t, 1, stats.UnmatchedOnsets)
	require.Len(t, stats.Warnings, 1)
	assert.Contains(t, stats.Warnings[0], "1 of 2 onsets")
}

func TestEvaluate_LookbackExcludesEarlierRecessions(t *testing.T) {
	recessions := recessionMap(date(2007, time.January, 1), 0, 1, 1, 0)
	for k, v := range recessionMap(date(2019, time.December, 1), 0, 0, 1, 1, 0) {
		recessions[k] = v
	}
	points := pointsCrossingAt(date(2019, time.December, 16), 6, 2)

	stats := newTestEvaluator().Evaluate(points, recessions, 0.5)

	assert.Equal(t, []time.Time{date(2020, time.February, 1)}, stats.RecessionStarts)
}

func TestEvaluate_OpenRecessionIsExcluded(t *testing.T) {
	recessions := recessionMap(date(2019, time.December, 1), 0, 0, 1, 1)
	points := pointsCrossingAt(date(2019, time.December, 16), 4, 2)

	stats := newTestEvaluator().Evaluate(points, recessions, 0.5)

	assert.Empty(t, stats.RecessionStarts)
	assert.Equal(t, 0, *stats.Accuracy)
	assert.Equal(t, 0, *stats.RecessionLeadTime)
	assert.Equal(t, 1, stats.UnmatchedOnsets)
	require.Len(t, stats.Warnings, 2)
	assert.Contains(t, stats.Warnings[0], "2020-02-01")
}

func TestEvaluate_CommitteeLeadIgnoresLaggingOnsets(t *testing.T) {
	e := NewEvaluator(Config{
		AccuracyWindowDays:  30,
		CommitteeWindowDays: 365,
		CommitteeDates:      []time.Time{date(2020, time.January, 1)},
	})
	recessions := recessionMap(date(2019, time.December, 1), 0, 0, 1, 0)
	points := pointsCrossingAt(date(2019, time.December, 16), 4, 2)

	stats := e.Evaluate(points, recessions, 0.5)

	assert.Nil(t, stats.CommitteeLeadTime)
}

func TestMatchPercent(t *testing.T) {
	preds := []time.Time{date(2020, time.March, 1)}
	refs := []time.Time{date(2020, time.February, 1)}

	pct, ok := MatchPercent(preds, refs, 90)
	assert.True(t, ok)
	assert.Equal(t, 100.0, pct)

	pct, ok = MatchPercent(preds, refs, 10)
	assert.True(t, ok)
	assert.Equal(t, 0.0, pct)

	_, ok = MatchPercent(nil, refs, 90)
	assert.False(t, ok)
}

func TestMatchPercent_MultipleReferencesCountOnce(t *testing.T) {
	preds := []time.Time{date(2020, time.March, 1), date(2022, time.March, 1)}
	refs := []time.Time{date(2020, time.February, 1), date(2020, time.March, 15), date(2020, time.April, 1)}

	pct, _ := MatchPercent(preds, refs, 60)
	assert.Equal(t, 50.0, pct)
}

func TestNearestOffsets(t *testing.T) {
	preds := []time.Time{date(2020, time.March, 1), date(2024, time.January, 1)}
	refs := []time.Time{date(2020, time.February, 1), date(2020, time.April, 1)}

	offsets := NearestOffsets(preds, refs, 90)

	require.Len(t, offsets, 2)
	assert.Equal(t, Offset{Days: -29, Matched: true}, offsets[0])
	assert.Equal(t, Offset{}, offsets[1])

	assert.Equal(t, []Offset{{}}, NearestOffsets(preds[:1], nil, 90))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Offset{
		{Days: 30, Matched: true},
		{Days: 10, Matched: true},
		{Days: -20, Matched: true},
		{},
	})

	require.NotNil(t, s.AverageDaysLeading)
	assert.Equal(t, 20.0, *s.AverageDaysLeading)
	require.NotNil(t, s.AverageDaysLagging)
	assert.Equal(t, -20.0, *s.AverageDaysLagging)
	require.NotNil(t, s.OverallAverageDays)
	assert.Equal(t, 5.0, *s.OverallAverageDays)
	assert.Equal(t, 1, s.Unmatched)

	empty := Summarize(nil)
	assert.Nil(t, empty.AverageDaysLeading)
	assert.Nil(t, empty.AverageDaysLagging)
	assert.Nil(t, empty.OverallAverageDays)
}

func TestRoundHalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{2.5, 3},
		{2.49, 2},
		{-2.5, -2},
		{-2.51, -3},
		{0, 0},
		{66.666, 67},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundHalfUp(tt.in), "round(%v)", tt.in)
	}
}
