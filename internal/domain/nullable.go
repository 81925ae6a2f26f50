package domain

import "math"

// NullFloat is a float64 that may be missing.
// A missing value never takes part in arithmetic: any operation with a
// missing operand yields a missing result, and comparisons against a
// missing value are false.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Missing is the zero NullFloat.
var Missing = NullFloat{}

// Float returns a valid NullFloat holding v. NaN is treated as missing.
func Float(v float64) NullFloat {
	if math.IsNaN(v) {
		return Missing
	}
	return NullFloat{Float64: v, Valid: true}
}

// Sub returns n - o, missing if either side is missing.
func (n NullFloat) Sub(o NullFloat) NullFloat {
	if !n.Valid || !o.Valid {
		return Missing
	}
	return NullFloat{Float64: n.Float64 - o.Float64, Valid: true}
}

// Floor returns max(floor, n). Missing stays missing.
func (n NullFloat) Floor(floor float64) NullFloat {
	if !n.Valid {
		return Missing
	}
	return NullFloat{Float64: math.Max(floor, n.Float64), Valid: true}
}

// AtLeast reports whether n is valid and n >= threshold.
func (n NullFloat) AtLeast(threshold float64) bool {
	return n.Valid && n.Float64 >= threshold
}
