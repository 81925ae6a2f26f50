package normalization

import (
	"sort"

	"sahm-rule-lab/internal/domain"
)

// SortObservations orders observations by (date ASC, series_id ASC).
func SortObservations(obs []domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return compareObservations(obs[i], obs[j]) < 0
	})
}

// compareObservations returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareObservations(a, b domain.Observation) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	}
	if a.SeriesID != b.SeriesID {
		if a.SeriesID < b.SeriesID {
			return -1
		}
		return 1
	}
	return 0
}
