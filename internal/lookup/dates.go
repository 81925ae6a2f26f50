package lookup

import (
	"errors"
	"math"
	"time"
)

// Errors returned by lookup functions.
var (
	ErrNoReferenceDates = errors.New("no reference dates available")
	ErrOutsideWindow    = errors.New("no reference date inside window")
)

// DaysBetween returns the signed number of days from `from` to `to`.
// Positive when to is after from.
func DaysBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24
}

// NearestWithin returns the reference date closest to target among those
// at most windowDays away (inclusive).
// On equal distance the earlier entry of refs wins, so refs should be ordered ASC.
// Returns ErrNoReferenceDates if refs is empty and ErrOutsideWindow if no
// reference is close enough.
func NearestWithin(target time.Time, refs []time.Time, windowDays float64) (time.Time, error) {
	if len(refs) == 0 {
		return time.Time{}, ErrNoReferenceDates
	}

	var (
		nearest time.Time
		best    = math.Inf(1)
	)
	for _, ref := range refs {
		dist := math.Abs(DaysBetween(target, ref))
		if dist > windowDays {
			continue
		}
		if dist < best {
			best = dist
			nearest = ref
		}
	}

	if math.IsInf(best, 1) {
		return time.Time{}, ErrOutsideWindow
	}
	return nearest, nil
}

// AnyWithin reports whether at least one reference date lies at most
// windowDays away from target.
func AnyWithin(target time.Time, refs []time.Time, windowDays float64) bool {
	for _, ref := range refs {
		if math.Abs(DaysBetween(target, ref)) <= windowDays {
			return true
		}
	}
	return false
}
