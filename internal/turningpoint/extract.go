// Package turningpoint extracts rising-edge events from signal and
// indicator series with a two-state (below/above) machine.
package turningpoint

import (
	"time"

	"sahm-rule-lab/internal/domain"
)

type state int

const (
	below state = iota
	above
)

// SignalStarts returns the dates at which the signal rises to or above
// threshold, ordered ASC. Missing values count as below. Only rising
// edges are emitted, so two onsets are always separated by at least one
// below observation.
func SignalStarts(points []domain.ComputedPoint, threshold float64) []time.Time {
	var starts []time.Time
	current := below
	for _, p := range points {
		next := below
		if p.Value.AtLeast(threshold) {
			next = above
		}
		if current == below && next == above {
			starts = append(starts, p.Date)
		}
		current = next
	}
	return starts
}

// BinaryIntervals returns the closed 1-runs of a 0/1 series as intervals.
// A rising edge opens an interval and the next falling edge closes it; End
// is the date of the first 0. An interval still open at the end of the
// series is not included in closed; its start is returned as open instead.
func BinaryIntervals(series []domain.BinaryPoint) (closed []domain.Interval, open *time.Time) {
	var start time.Time
	current := below
	for _, p := range series {
		switch {
		case current == below && p.Value == 1:
			start = p.Date
			current = above
		case current == above && p.Value == 0:
			closed = append(closed, domain.Interval{
				Period: len(closed),
				Start:  start,
				End:    p.Date,
			})
			current = below
		}
	}
	if current == above {
		open = &start
	}
	return closed, open
}

// Starts returns the start date of every interval.
func Starts(intervals []domain.Interval) []time.Time {
	starts := make([]time.Time, len(intervals))
	for i, iv := range intervals {
		starts[i] = iv.Start
	}
	return starts
}
