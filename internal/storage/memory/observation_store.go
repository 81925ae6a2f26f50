package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data map[string]map[time.Time]domain.Observation // series_id -> date -> observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		data: make(map[string]map[time.Time]domain.Observation),
	}
}

// Upsert inserts or replaces observations by (series_id, date).
// The batch is validated before anything is written.
func (s *ObservationStore) Upsert(_ context.Context, obs []domain.Observation) error {
	for _, o := range obs {
		if o.SeriesID == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range obs {
		series, ok := s.data[o.SeriesID]
		if !ok {
			series = make(map[time.Time]domain.Observation)
			s.data[o.SeriesID] = series
		}
		o.Date = o.Date.UTC()
		series[o.Date] = o
	}
	return nil
}

// GetSeries retrieves all observations of a series, ordered by date ASC.
func (s *ObservationStore) GetSeries(ctx context.Context, seriesID string) ([]domain.Observation, error) {
	result, err := s.GetRange(ctx, seriesID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

// GetRange retrieves observations within [from, to] (inclusive), ordered by date ASC.
func (s *ObservationStore) GetRange(_ context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Observation
	for d, o := range s.data[seriesID] {
		if d.Before(from) || (!to.IsZero() && d.After(to)) {
			continue
		}
		result = append(result, o)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// ListSeries returns the ids of all cached series, sorted.
func (s *ObservationStore) ListSeries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
