package memory

import (
	"context"
	"sort"
	"sync"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// RegionStatsStore is an in-memory implementation of storage.RegionStatsStore.
type RegionStatsStore struct {
	mu   sync.RWMutex
	data map[[2]string]domain.RegionStats // keyed by (run_id, region_id)
}

// NewRegionStatsStore creates a new in-memory region stats store.
func NewRegionStatsStore() *RegionStatsStore {
	return &RegionStatsStore{
		data: make(map[[2]string]domain.RegionStats),
	}
}

// InsertBulk adds multiple stats. Fails entire batch on duplicate.
func (s *RegionStatsStore) InsertBulk(_ context.Context, stats []domain.RegionStats) error {
	if len(stats) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[[2]string]struct{}, len(stats))
	for _, st := range stats {
		if st.RunID == "" || st.RegionID == "" {
			return storage.ErrInvalidInput
		}
		key := [2]string{st.RunID, st.RegionID}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, st := range stats {
		s.data[[2]string{st.RunID, st.RegionID}] = copyStats(st)
	}
	return nil
}

// GetByRun retrieves all stats of a run, ordered by region_id ASC.
func (s *RegionStatsStore) GetByRun(_ context.Context, runID string) ([]domain.RegionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.RegionStats
	for key, st := range s.data {
		if key[0] == runID {
			result = append(result, copyStats(st))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RegionID < result[j].RegionID
	})
	return result, nil
}

// copyStats detaches the optional fields from the caller's pointers.
func copyStats(st domain.RegionStats) domain.RegionStats {
	st.Accuracy = copyInt(st.Accuracy)
	st.RecessionLeadTime = copyInt(st.RecessionLeadTime)
	st.CommitteeLeadTime = copyInt(st.CommitteeLeadTime)
	return st
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var _ storage.RegionStatsStore = (*RegionStatsStore)(nil)
