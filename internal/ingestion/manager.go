package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sahm-rule-lab/internal/normalization"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/storage"
)

// Manager copies series from a source into the observation cache.
// Writes are upserts, so re-ingesting picks up upstream revisions.
type Manager struct {
	source SeriesSource
	store  storage.ObservationStore
	logger zerolog.Logger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source SeriesSource
	Store  storage.ObservationStore
	Logger zerolog.Logger
}

// NewManager creates a new ingestion manager with the provided source and store.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		source: opts.Source,
		store:  opts.Store,
		logger: opts.Logger,
	}
}

// Result is the outcome of ingesting one series.
type Result struct {
	SeriesID string
	Count    int
	Err      error
}

// IngestSeries fetches seriesID from start on and stores it.
// Returns count of stored observations.
func (m *Manager) IngestSeries(ctx context.Context, seriesID string, start time.Time) (int, error) {
	if m.source == nil || m.store == nil {
		return 0, nil
	}

	obs, err := m.source.Observations(ctx, seriesID, start)
	observability.RecordSeriesFetched(err)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", seriesID, err)
	}
	if len(obs) == 0 {
		return 0, nil
	}

	normalization.SortObservations(obs)

	if err := m.store.Upsert(ctx, obs); err != nil {
		return 0, fmt.Errorf("store %s: %w", seriesID, err)
	}
	observability.RecordObservationsStored(len(obs))

	m.logger.Debug().
		Str("series", seriesID).
		Int("observations", len(obs)).
		Time("first", obs[0].Date).
		Time("last", obs[len(obs)-1].Date).
		Msg("series ingested")

	return len(obs), nil
}

// IngestAll ingests each series in order. A failing series is logged and
// reported in its Result; the remaining series are still ingested.
// Only context cancellation aborts the loop.
func (m *Manager) IngestAll(ctx context.Context, seriesIDs []string, start time.Time) ([]Result, error) {
	results := make([]Result, 0, len(seriesIDs))
	for _, id := range seriesIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		n, err := m.IngestSeries(ctx, id, start)
		if err != nil {
			m.logger.Warn().Err(err).Str("series", id).Msg("series ingestion failed")
		}
		results = append(results, Result{SeriesID: id, Count: n, Err: err})
	}
	return results, nil
}
