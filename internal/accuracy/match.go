package accuracy

import (
	"time"

	"sahm-rule-lab/internal/lookup"
)

// Offset is the signed day distance from a prediction to its nearest
// reference date. Positive means the prediction came first.
type Offset struct {
	Days    float64
	Matched bool // false when no reference date was inside the window
}

// MatchPercent returns the percentage of predictions that have at least one
// reference date within windowDays. Unpredicted references are not
// penalized and a prediction matching several references counts once.
// ok is false when there are no predictions.
func MatchPercent(predictions, references []time.Time, windowDays int) (pct float64, ok bool) {
	if len(predictions) == 0 {
		return 0, false
	}
	matched := 0
	for _, p := range predictions {
		if lookup.AnyWithin(p, references, float64(windowDays)) {
			matched++
		}
	}
	return float64(matched) / float64(len(predictions)) * 100, true
}

// NearestOffsets returns, for every prediction, the signed offset
// nearest_reference - prediction in days among references within
// windowDays. Predictions without such a reference yield an unmatched
// zero-day offset.
func NearestOffsets(predictions, references []time.Time, windowDays int) []Offset {
	offsets := make([]Offset, len(predictions))
	for i, p := range predictions {
		nearest, err := lookup.NearestWithin(p, references, float64(windowDays))
		if err != nil {
			// No reference dates at all, or none inside the window.
			continue
		}
		offsets[i] = Offset{Days: lookup.DaysBetween(p, nearest), Matched: true}
	}
	return offsets
}
