package accuracy

import "math"

// Summary condenses a set of offsets. Each field is nil when its subset is empty.
type Summary struct {
	AverageDaysLeading *float64 // mean of positive offsets
	AverageDaysLagging *float64 // mean of negative offsets
	OverallAverageDays *float64 // mean of all offsets, unmatched ones as 0
	Unmatched          int
}

// Summarize computes lead, lag and overall averages.
// Unmatched offsets enter the overall mean as 0 days and are counted in
// Unmatched so callers can report them.
func Summarize(offsets []Offset) Summary {
	var (
		all     = make([]float64, 0, len(offsets))
		leading []float64
		lagging []float64
		s       Summary
	)
	for _, o := range offsets {
		if !o.Matched {
			s.Unmatched++
		}
		all = append(all, o.Days)
		switch {
		case o.Days > 0:
			leading = append(leading, o.Days)
		case o.Days < 0:
			lagging = append(lagging, o.Days)
		}
	}

	s.AverageDaysLeading = computeMean(leading)
	s.AverageDaysLagging = computeMean(lagging)
	s.OverallAverageDays = computeMean(all)
	return s
}

// computeMean returns the arithmetic mean, or nil for no values.
func computeMean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}

// roundHalfUp rounds to the nearest integer, halves toward +Inf.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// roundPtr rounds v, preserving nil.
func roundPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	r := roundHalfUp(*v)
	return &r
}
