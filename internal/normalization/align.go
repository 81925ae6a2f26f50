package normalization

import (
	"errors"
	"fmt"
	"time"

	"sahm-rule-lab/internal/domain"
)

// Errors returned by alignment and validation.
var (
	ErrEmptySeries    = errors.New("empty series")
	ErrNoOverlap      = errors.New("series do not overlap")
	ErrLengthMismatch = errors.New("series length mismatch")
	ErrDateMismatch   = errors.New("series dates not aligned")
	ErrNotAscending   = errors.New("series dates not strictly ascending")
)

// Align trims base and relative to their common date range.
// The range starts at the latest of the two first dates and startFloor
// (ignored when zero) and ends at the earliest of the two last dates.
// Both inputs must be sorted by date ASC. The trimmed series are validated
// with ValidateAligned, so a gap in either input is reported, not repaired.
func Align(base, relative []domain.Observation, startFloor time.Time) ([]domain.Observation, []domain.Observation, error) {
	if len(base) == 0 || len(relative) == 0 {
		return nil, nil, ErrEmptySeries
	}

	start := latest(base[0].Date, relative[0].Date)
	if !startFloor.IsZero() {
		start = latest(start, startFloor)
	}
	end := base[len(base)-1].Date
	if relative[len(relative)-1].Date.Before(end) {
		end = relative[len(relative)-1].Date
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("%w: range %s..%s", ErrNoOverlap,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	alignedBase := trim(base, start, end)
	alignedRelative := trim(relative, start, end)
	if len(alignedBase) == 0 {
		return nil, nil, ErrNoOverlap
	}

	if err := ValidateAligned(alignedBase, alignedRelative); err != nil {
		return nil, nil, err
	}
	return alignedBase, alignedRelative, nil
}

// ValidateAligned checks that both series have equal length, identical
// dates at every index and strictly ascending dates.
func ValidateAligned(base, relative []domain.Observation) error {
	if len(base) != len(relative) {
		return fmt.Errorf("%w: base has %d points, relative has %d",
			ErrLengthMismatch, len(base), len(relative))
	}
	for i := range base {
		if !base[i].Date.Equal(relative[i].Date) {
			return fmt.Errorf("%w: index %d base=%s relative=%s", ErrDateMismatch, i,
				base[i].Date.Format(time.DateOnly), relative[i].Date.Format(time.DateOnly))
		}
		if i > 0 && !base[i-1].Date.Before(base[i].Date) {
			return fmt.Errorf("%w: index %d (%s after %s)", ErrNotAscending, i,
				base[i].Date.Format(time.DateOnly), base[i-1].Date.Format(time.DateOnly))
		}
	}
	return nil
}

func trim(obs []domain.Observation, start, end time.Time) []domain.Observation {
	result := make([]domain.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		result = append(result, o)
	}
	return result
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
