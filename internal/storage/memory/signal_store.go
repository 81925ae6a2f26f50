package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]domain.SignalPoint // keyed by (run_id, region_id, date)
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]domain.SignalPoint),
	}
}

// signalKey generates a unique key for a signal point.
func signalKey(p domain.SignalPoint) string {
	return fmt.Sprintf("%s|%s|%d", p.RunID, p.RegionID, p.Date.Unix())
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *SignalStore) InsertBulk(_ context.Context, points []domain.SignalPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p.RunID == "" || p.RegionID == "" {
			return storage.ErrInvalidInput
		}
		key := signalKey(p)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		s.data[signalKey(p)] = p
	}
	return nil
}

// GetByRegion retrieves the points of one region in one run, ordered by date ASC.
func (s *SignalStore) GetByRegion(_ context.Context, runID, regionID string) ([]domain.SignalPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SignalPoint
	for _, p := range s.data {
		if p.RunID == runID && p.RegionID == regionID {
			result = append(result, p)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

var _ storage.SignalStore = (*SignalStore)(nil)
