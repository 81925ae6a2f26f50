package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sahm-rule-lab/internal/accuracy"
	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/normalization"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/reporting"
	"sahm-rule-lab/internal/signal"
	"sahm-rule-lab/internal/storage"
)

// ErrNoValidObservations is returned for a region whose series holds no values.
var ErrNoValidObservations = errors.New("no valid observations")

// Sink names used in metrics.
const (
	SinkCSV        = "csv"
	SinkClickHouse = "clickhouse"
)

// BatchRunner computes the signal of every region and writes the batch outputs.
type BatchRunner struct {
	source          ingestion.SeriesSource
	evaluator       *accuracy.Evaluator
	params          signal.Params
	threshold       float64
	recessionSeries string
	startDate       time.Time
	maxRegions      int
	outputDir       string
	chunkRows       int

	runStore    storage.BatchRunStore    // optional
	signalStore storage.SignalStore      // optional
	statsStore  storage.RegionStatsStore // optional

	logger   zerolog.Logger
	clock    func() time.Time
	newRunID func() string
}

// BatchOptions contains configuration for creating a BatchRunner.
type BatchOptions struct {
	Source          ingestion.SeriesSource
	Evaluation      accuracy.Config
	Params          signal.Params // zero value selects signal.DefaultParams
	Threshold       float64
	RecessionSeries string
	StartDate       time.Time
	MaxRegions      int // 0 means all
	OutputDir       string
	ChunkRows       int

	RunStore    storage.BatchRunStore
	SignalStore storage.SignalStore
	StatsStore  storage.RegionStatsStore

	Logger zerolog.Logger
}

// NewBatchRunner creates a new batch runner.
func NewBatchRunner(opts BatchOptions) *BatchRunner {
	params := opts.Params
	if params == (signal.Params{}) {
		params = signal.DefaultParams()
	}

	return &BatchRunner{
		source:          opts.Source,
		evaluator:       accuracy.NewEvaluator(opts.Evaluation),
		params:          params,
		threshold:       opts.Threshold,
		recessionSeries: opts.RecessionSeries,
		startDate:       opts.StartDate,
		maxRegions:      opts.MaxRegions,
		outputDir:       opts.OutputDir,
		chunkRows:       opts.ChunkRows,
		runStore:        opts.RunStore,
		signalStore:     opts.SignalStore,
		statsStore:      opts.StatsStore,
		logger:          opts.Logger,
		clock:           func() time.Time { return time.Now().UTC() },
		newRunID:        uuid.NewString,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (r *BatchRunner) WithClock(clock func() time.Time) *BatchRunner {
	r.clock = clock
	return r
}

// Run processes regions sequentially. A failing region is logged and
// skipped; only the recession series, the output files and context
// cancellation can fail the run.
func (r *BatchRunner) Run(ctx context.Context, regions []domain.Region) (run *domain.BatchRun, err error) {
	if r.maxRegions > 0 && len(regions) > r.maxRegions {
		regions = regions[:r.maxRegions]
	}

	run = &domain.BatchRun{
		RunID:     r.newRunID(),
		StartedAt: r.clock(),
		Regions:   len(regions),
	}
	logger := r.logger.With().Str("run_id", run.RunID).Logger()

	started := false
	defer func() {
		finished := r.clock()
		run.FinishedAt = &finished
		observability.RecordBatch(finished.Sub(run.StartedAt), err)
		if started {
			if ferr := r.runStore.Finish(context.WithoutCancel(ctx), run); ferr != nil {
				logger.Error().Err(ferr).Msg("failed to record batch run")
			}
		}
	}()

	if r.runStore != nil {
		if err := r.runStore.Start(ctx, run); err != nil {
			return run, fmt.Errorf("start run: %w", err)
		}
		started = true
	}

	recessionObs, err := r.source.Observations(ctx, r.recessionSeries, r.startDate)
	if err != nil {
		return run, fmt.Errorf("load recession series %s: %w", r.recessionSeries, err)
	}
	recessions := domain.NewRecessionMap(recessionObs)

	writer, err := reporting.NewBatchWriter(r.outputDir, r.chunkRows)
	if err != nil {
		return run, err
	}
	writer.WithClock(r.clock)

	logger.Info().Int("regions", len(regions)).Msg("batch started")

	var allStats []domain.RegionStats
	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return run, err
		}

		points, stats, err := r.processRegion(ctx, run.RunID, region, recessions)
		observability.RecordRegion(err)
		if err != nil {
			run.Failed++
			logger.Warn().Err(err).
				Str("region", region.RegionID).
				Str("series", region.SeriesID).
				Msg("region skipped")
			continue
		}

		if err := writer.AddRegion(points); err != nil {
			return run, err
		}
		observability.RecordRowsWritten(SinkCSV, len(points))
		r.sink(ctx, logger, region, points, stats)
		allStats = append(allStats, stats)

		logger.Debug().
			Int("index", i+1).
			Str("region", region.RegionID).
			Int("points", len(points)).
			Msg("region processed")
	}

	if err := writer.Close(allStats); err != nil {
		return run, err
	}
	run.Chunks = writer.Chunks()

	logger.Info().
		Int("regions", run.Regions).
		Int("failed", run.Failed).
		Int("chunks", run.Chunks).
		Msg("batch finished")

	return run, nil
}

// processRegion computes and evaluates the signal of one region with the
// region series as both base and relative series.
func (r *BatchRunner) processRegion(ctx context.Context, runID string, region domain.Region, recessions domain.RecessionMap) ([]domain.SignalPoint, domain.RegionStats, error) {
	obs, err := r.source.Observations(ctx, region.SeriesID, r.startDate)
	if err != nil {
		return nil, domain.RegionStats{}, err
	}

	valid := obs[:0:0]
	for _, o := range obs {
		if o.Selected(r.params.Seasonal).Valid {
			valid = append(valid, o)
		}
	}
	if len(valid) == 0 {
		return nil, domain.RegionStats{}, fmt.Errorf("%w: %s", ErrNoValidObservations, region.SeriesID)
	}
	normalization.SortObservations(valid)

	computed, err := signal.Compute(valid, valid, r.params)
	if err != nil {
		return nil, domain.RegionStats{}, err
	}

	points := make([]domain.SignalPoint, len(computed))
	for i, c := range computed {
		points[i] = domain.SignalPoint{
			RunID:            runID,
			RegionID:         region.RegionID,
			Date:             c.Date,
			UnemploymentRate: valid[i].Selected(r.params.Seasonal).Float64,
			Signal:           c.Value,
		}
	}

	evaluation := r.evaluator.Evaluate(computed, recessions, r.threshold)
	stats := domain.RegionStats{
		RunID:             runID,
		RegionID:          region.RegionID,
		SignalStarts:      len(evaluation.SignalStarts),
		Accuracy:          evaluation.Accuracy,
		RecessionLeadTime: evaluation.RecessionLeadTime,
		CommitteeLeadTime: evaluation.CommitteeLeadTime,
		ComputedAt:        r.clock(),
	}
	return points, stats, nil
}

// sink pushes region results to the optional stores. Failures are logged
// and do not skip the region, since its CSV rows are already buffered.
func (r *BatchRunner) sink(ctx context.Context, logger zerolog.Logger, region domain.Region, points []domain.SignalPoint, stats domain.RegionStats) {
	if r.signalStore != nil {
		if err := r.signalStore.InsertBulk(ctx, points); err != nil {
			logger.Error().Err(err).Str("region", region.RegionID).Msg("failed to store signal points")
		} else {
			observability.RecordRowsWritten(SinkClickHouse, len(points))
		}
	}
	if r.statsStore != nil {
		if err := r.statsStore.InsertBulk(ctx, []domain.RegionStats{stats}); err != nil {
			logger.Error().Err(err).Str("region", region.RegionID).Msg("failed to store region stats")
		}
	}
}
