package domain

import "time"

// Region is one geographic unit processed by the batch job.
type Region struct {
	RegionID string // FIPS code
	Name     string // county name
	SeriesID string // FRED unemployment series
}

// SignalPoint is one row of the per-region signal time series.
// Corresponds to signal_timeseries table in ClickHouse.
type SignalPoint struct {
	RunID            string
	RegionID         string
	Date             time.Time
	UnemploymentRate float64
	Signal           NullFloat
}

// RegionStats is the aggregated evaluation for one region.
// Corresponds to region_stats table in ClickHouse.
type RegionStats struct {
	RunID             string
	RegionID          string
	SignalStarts      int
	Accuracy          *int
	RecessionLeadTime *int
	CommitteeLeadTime *int
	ComputedAt        time.Time
}

// BatchRun records one execution of the county batch job.
// Corresponds to batch_runs table in PostgreSQL.
type BatchRun struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while running
	Regions    int        // regions attempted
	Failed     int        // regions skipped after an error
	Chunks     int        // time-series chunk files written
}
