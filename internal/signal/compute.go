// Package signal computes the Sahm Rule recession signal: the k-month
// average of a base series minus the rolling minimum of the m-month average
// of a relative series.
package signal

import (
	"errors"
	"fmt"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/normalization"
)

// Errors returned by signal computation.
var (
	ErrInvalidWindow    = errors.New("window must be at least 1")
	ErrInsufficientData = errors.New("insufficient data for configured windows")
)

// Params configures one signal computation.
type Params struct {
	K           int     // base smoothing window (months)
	M           int     // relative smoothing window (months)
	TimePeriod  int     // rolling minimum window (months)
	Seasonal    bool    // read seasonally adjusted values
	NaturalRate float64 // lower bound applied to inputs; <= 0 disables
	Preceding   bool    // lag the relative average one month before the minimum
}

// DefaultParams returns the classic Sahm Rule parameters.
func DefaultParams() Params {
	return Params{K: 3, M: 3, TimePeriod: 13}
}

// Validate checks window sizes.
func (p Params) Validate() error {
	if p.K < 1 {
		return fmt.Errorf("%w: k=%d", ErrInvalidWindow, p.K)
	}
	if p.M < 1 {
		return fmt.Errorf("%w: m=%d", ErrInvalidWindow, p.M)
	}
	if p.TimePeriod < 1 {
		return fmt.Errorf("%w: time_period=%d", ErrInvalidWindow, p.TimePeriod)
	}
	return nil
}

// WarmUp returns the index of the first point that can hold a value.
func (p Params) WarmUp() int {
	lag := 0
	if p.Preceding {
		lag = 1
	}
	return max(p.K-1, p.M-1+lag+p.TimePeriod-1)
}

// CheckSufficiency returns ErrInsufficientData when a series of n points
// cannot produce a single defined signal value under p.
func CheckSufficiency(n int, p Params) error {
	if need := p.WarmUp() + 1; n < need {
		return fmt.Errorf("%w: have %d points, need at least %d", ErrInsufficientData, n, need)
	}
	return nil
}

// Compute derives the signal for index-aligned base and relative series.
// The output has the same length and dates as the inputs. Points inside
// the warm-up period are missing.
func Compute(base, relative []domain.Observation, p Params) ([]domain.ComputedPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := normalization.ValidateAligned(base, relative); err != nil {
		return nil, fmt.Errorf("compute signal: %w", err)
	}

	n := len(base)
	baseValues := make([]domain.NullFloat, n)
	relativeValues := make([]domain.NullFloat, n)
	for i := 0; i < n; i++ {
		baseValues[i] = base[i].Selected(p.Seasonal)
		relativeValues[i] = relative[i].Selected(p.Seasonal)
	}
	baseValues = ClampFloor(baseValues, p.NaturalRate)
	relativeValues = ClampFloor(relativeValues, p.NaturalRate)

	baseAvg := MovingAverage(baseValues, p.K)
	relativeAvg := MovingAverage(relativeValues, p.M)
	if p.Preceding {
		relativeAvg = Lag(relativeAvg)
	}
	relativeMin := RollingMin(relativeAvg, p.TimePeriod)

	points := make([]domain.ComputedPoint, n)
	for i := 0; i < n; i++ {
		points[i] = domain.ComputedPoint{
			Date:  base[i].Date,
			Value: baseAvg[i].Sub(relativeMin[i]),
		}
	}
	return points, nil
}
