package domain

import (
	"sort"
	"time"
)

// RecessionMap is a sparse month -> {0,1} recession indicator.
// Keys are UTC dates.
type RecessionMap map[time.Time]int

// BinaryPoint is one entry of a 0/1 indicator series.
type BinaryPoint struct {
	Date  time.Time
	Value int
}

// Interval is a closed recession period. End is the first date the
// indicator returned to 0.
type Interval struct {
	Period int // zero-based index in extraction order
	Start  time.Time
	End    time.Time
}

// NewRecessionMap builds a RecessionMap from indicator observations.
// Missing values are skipped; any non-zero value is a recession month.
func NewRecessionMap(obs []Observation) RecessionMap {
	m := make(RecessionMap, len(obs))
	for _, o := range obs {
		if !o.Value.Valid {
			continue
		}
		v := 0
		if o.Value.Float64 != 0 {
			v = 1
		}
		m[o.Date.UTC()] = v
	}
	return m
}

// Since returns entries dated on or after from, ordered by date ASC.
func (m RecessionMap) Since(from time.Time) []BinaryPoint {
	result := make([]BinaryPoint, 0, len(m))
	for d, v := range m {
		if !d.Before(from) {
			result = append(result, BinaryPoint{Date: d, Value: v})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}
