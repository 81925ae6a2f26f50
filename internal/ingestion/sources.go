package ingestion

import (
	"context"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// SeriesSource provides monthly observations of a series.
// The FRED client, the observation cache and CSV directories implement it.
type SeriesSource interface {
	// Observations returns observations dated on or after start (all when
	// start is zero). Results may be unordered; callers sort.
	Observations(ctx context.Context, seriesID string, start time.Time) ([]domain.Observation, error)
}

// StoreSource reads series from an observation cache.
type StoreSource struct {
	store storage.ObservationStore
}

// NewStoreSource creates a source backed by store.
func NewStoreSource(store storage.ObservationStore) *StoreSource {
	return &StoreSource{store: store}
}

// Observations returns cached observations dated on or after start.
// Returns storage.ErrNotFound if the series is not cached.
func (s *StoreSource) Observations(ctx context.Context, seriesID string, start time.Time) ([]domain.Observation, error) {
	obs, err := s.store.GetRange(ctx, seriesID, start, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, storage.ErrNotFound
	}
	return obs, nil
}

var _ SeriesSource = (*StoreSource)(nil)
