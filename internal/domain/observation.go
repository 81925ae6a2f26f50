package domain

import "time"

// Observation is one monthly reading of an economic series.
// Corresponds to observations table in PostgreSQL.
type Observation struct {
	SeriesID       string    // FRED series identifier (e.g. UNRATE)
	Date           time.Time // observation month, UTC midnight
	Value          NullFloat // published value
	Deseasonalized NullFloat // seasonally adjusted value, missing if not published
}

// Selected returns the seasonally adjusted value when seasonal is set,
// otherwise the published value. An absent field yields Missing.
func (o Observation) Selected(seasonal bool) NullFloat {
	if seasonal {
		return o.Deseasonalized
	}
	return o.Value
}

// ComputedPoint is one value of a derived series.
// Value is missing during warm-up.
type ComputedPoint struct {
	Date  time.Time
	Value NullFloat
}

// Month normalizes t to the first day of its month in UTC.
func Month(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
