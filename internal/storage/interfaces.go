package storage

import (
	"context"
	"time"

	"sahm-rule-lab/internal/domain"
)

// ObservationStore caches raw series observations fetched from FRED.
// Series are revised upstream, so writes replace existing rows.
type ObservationStore interface {
	// Upsert inserts observations, replacing any stored row with the same
	// (series_id, date). Returns ErrInvalidInput if a SeriesID is empty.
	Upsert(ctx context.Context, obs []domain.Observation) error

	// GetSeries retrieves all observations of a series, ordered by date ASC.
	// Returns ErrNotFound if the series has no rows.
	GetSeries(ctx context.Context, seriesID string) ([]domain.Observation, error)

	// GetRange retrieves observations of a series within [from, to] (inclusive),
	// ordered by date ASC. A zero to means no upper bound.
	GetRange(ctx context.Context, seriesID string, from, to time.Time) ([]domain.Observation, error)

	// ListSeries returns the ids of all cached series, sorted.
	ListSeries(ctx context.Context) ([]string, error)
}

// SignalStore receives the per-region signal time series of batch runs.
type SignalStore interface {
	// InsertBulk adds points. Returns ErrDuplicateKey if (run_id, region_id, date) exists.
	InsertBulk(ctx context.Context, points []domain.SignalPoint) error

	// GetByRegion retrieves the points of one region in one run, ordered by date ASC.
	GetByRegion(ctx context.Context, runID, regionID string) ([]domain.SignalPoint, error)
}

// RegionStatsStore receives the aggregated evaluation of each region.
type RegionStatsStore interface {
	// InsertBulk adds stats. Returns ErrDuplicateKey if (run_id, region_id) exists.
	InsertBulk(ctx context.Context, stats []domain.RegionStats) error

	// GetByRun retrieves all stats of a run, ordered by region_id ASC.
	GetByRun(ctx context.Context, runID string) ([]domain.RegionStats, error)
}

// BatchRunStore records batch run progress.
type BatchRunStore interface {
	// Start records a new run. Returns ErrDuplicateKey if run_id exists.
	Start(ctx context.Context, run *domain.BatchRun) error

	// Finish stores the final counters and finish time of a run.
	// Returns ErrNotFound if the run was never started.
	Finish(ctx context.Context, run *domain.BatchRun) error

	// GetLatest returns the most recently started run.
	// Returns ErrNotFound if no run has been recorded yet.
	GetLatest(ctx context.Context) (*domain.BatchRun, error)
}
