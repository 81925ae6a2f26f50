package signal

import "sahm-rule-lab/internal/domain"

// MovingAverage returns the trailing simple moving average over window n.
// The value at i is defined only for i >= n-1 and only when every input in
// [i-n+1, i] is present; otherwise it is missing.
func MovingAverage(values []domain.NullFloat, n int) []domain.NullFloat {
	means := make([]domain.NullFloat, len(values))
	if n < 1 {
		return means
	}

	sum := 0.0
	missing := 0
	for i, v := range values {
		if v.Valid {
			sum += v.Float64
		} else {
			missing++
		}
		if i < n-1 {
			continue
		}
		if missing == 0 {
			means[i] = domain.Float(sum / float64(n))
		}
		// Drop the oldest value before the window slides.
		if old := values[i-n+1]; old.Valid {
			sum -= old.Float64
		} else {
			missing--
		}
	}
	return means
}

// RollingMin returns the trailing minimum over window n in O(len(values)).
//
// A monotonic deque holds indices of present values in increasing value
// order: indices that left the window are evicted from the front, and
// before pushing i every index whose value exceeds values[i] is popped
// from the back. The front is then the position of the window minimum.
// The value at i is defined only once the window is fully populated with
// present values.
func RollingMin(values []domain.NullFloat, n int) []domain.NullFloat {
	mins := make([]domain.NullFloat, len(values))
	if n < 1 {
		return mins
	}

	dq := newIndexDeque(n + 1)
	lastMissing := -1
	for i, v := range values {
		for !dq.empty() && dq.front() < i-n+1 {
			dq.popFront()
		}

		if v.Valid {
			for !dq.empty() && values[dq.back()].Float64 > v.Float64 {
				dq.popBack()
			}
			dq.pushBack(i)
		} else {
			lastMissing = i
		}

		if i >= n-1 && lastMissing < i-n+1 {
			mins[i] = values[dq.front()]
		}
	}
	return mins
}

// Lag shifts values forward by one index. Index 0 becomes missing.
func Lag(values []domain.NullFloat) []domain.NullFloat {
	lagged := make([]domain.NullFloat, len(values))
	for i := 1; i < len(values); i++ {
		lagged[i] = values[i-1]
	}
	return lagged
}

// ClampFloor replaces every present value below floor with floor.
// A non-positive floor disables clamping.
func ClampFloor(values []domain.NullFloat, floor float64) []domain.NullFloat {
	clamped := make([]domain.NullFloat, len(values))
	for i, v := range values {
		if floor > 0 {
			clamped[i] = v.Floor(floor)
		} else {
			clamped[i] = v
		}
	}
	return clamped
}
