// Package accuracy scores signal onsets against reference recession
// dates: how many onsets hit a recession start, and by how many days they
// lead or lag it and the committee announcement.
package accuracy

import (
	"fmt"
	"sort"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/turningpoint"
)

// recessionLookbackMonths bounds how far before the first onset reference
// recessions are still considered.
const recessionLookbackMonths = 3

// Config holds the evaluation policy. It is fixed per Evaluator.
type Config struct {
	AccuracyWindowDays  int         // match window against recession starts
	CommitteeWindowDays int         // match window against committee announcements
	CommitteeDates      []time.Time // committee announcement dates
}

// Evaluator scores computed signals. It holds no mutable state and is
// safe for concurrent use.
type Evaluator struct {
	accuracyWindow  int
	committeeWindow int
	committeeDates  []time.Time
}

// NewEvaluator creates an evaluator. Committee dates are copied and sorted ASC.
func NewEvaluator(cfg Config) *Evaluator {
	dates := make([]time.Time, len(cfg.CommitteeDates))
	copy(dates, cfg.CommitteeDates)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &Evaluator{
		accuracyWindow:  cfg.AccuracyWindowDays,
		committeeWindow: cfg.CommitteeWindowDays,
		committeeDates:  dates,
	}
}

// Evaluate extracts onsets from points at threshold and scores them
// against the closed recessions in recessions.
func (e *Evaluator) Evaluate(points []domain.ComputedPoint, recessions domain.RecessionMap, threshold float64) *domain.Stats {
	starts := turningpoint.SignalStarts(points, threshold)
	if len(starts) == 0 {
		return &domain.Stats{
			NoCrossings: true,
			Warnings:    []string{fmt.Sprintf("signal never reached threshold %.2f", threshold)},
		}
	}

	stats := &domain.Stats{SignalStarts: starts}

	from := starts[0].AddDate(0, -recessionLookbackMonths, 0)
	closed, open := turningpoint.BinaryIntervals(recessions.Since(from))
	stats.RecessionStarts = turningpoint.Starts(closed)
	if open != nil {
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("recession starting %s is still open and excluded", open.Format(time.DateOnly)))
	}

	pct, _ := MatchPercent(starts, stats.RecessionStarts, e.accuracyWindow)
	acc := roundHalfUp(pct)
	stats.Accuracy = &acc

	recession := Summarize(NearestOffsets(starts, stats.RecessionStarts, e.accuracyWindow))
	stats.RecessionLeadTime = roundPtr(recession.OverallAverageDays)
	stats.UnmatchedOnsets = recession.Unmatched
	if recession.Unmatched > 0 {
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("%d of %d onsets have no recession start within %d days; counted as 0-day offsets in lead time",
				recession.Unmatched, len(starts), e.accuracyWindow))
	}

	committee := Summarize(NearestOffsets(starts, e.committeeDates, e.committeeWindow))
	stats.CommitteeLeadTime = roundPtr(committee.AverageDaysLeading)

	return stats
}
