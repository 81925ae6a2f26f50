package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/config"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/pipeline"
	chstore "sahm-rule-lab/internal/storage/clickhouse"
	pgstore "sahm-rule-lab/internal/storage/postgres"
)

// batchCmd runs the county batch job
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Compute the signal for every county in the region list",
	Long: `Fetch each region's unemployment series, compute the signal with the
series as both base and relative input, evaluate it against the national
recession series and write chunk-N.csv, map-data-aggregated.csv and info.csv.

Runs are recorded in PostgreSQL when storage.postgres_dsn is set and rows are
pushed to ClickHouse when storage.clickhouse_dsn is set.

Examples:
  sahm batch
  sahm batch --max-regions 50 --output-dir out/test
  sahm batch --schedule "0 6 * * 5" --metrics-addr :9090`,
	RunE: runBatch,
}

var (
	batchMetricsAddr string
	batchSchedule    string
	batchRegions     string
	batchOutputDir   string
	batchDataDir     string
	batchMaxRegions  int
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchMetricsAddr, "metrics-addr", "", "Prometheus metrics address (default: metrics.addr)")
	batchCmd.Flags().StringVar(&batchSchedule, "schedule", "", "Cron schedule; run repeatedly instead of once")
	batchCmd.Flags().StringVar(&batchRegions, "regions", "", "Region list CSV (default: data.regions_file)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "Output directory (default: data.output_dir)")
	batchCmd.Flags().StringVar(&batchDataDir, "data-dir", "", "Read series from <dir>/<series_id>.csv instead of FRED")
	batchCmd.Flags().IntVar(&batchMaxRegions, "max-regions", -1, "Maximum regions to process (default: data.max_regions)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	applyBatchFlags(e.cfg)

	ctx, cancel := signalContext(e.logger)
	defer cancel()

	serveMetrics(ctx, e.cfg.Metrics.Addr, e.logger)

	var source ingestion.SeriesSource
	if batchDataDir != "" {
		source = ingestion.NewCSVSource(batchDataDir)
	} else {
		fredSrc, release, err := e.fredSource()
		if err != nil {
			return err
		}
		defer release()
		source = fredSrc
	}

	opts := pipeline.BatchOptions{
		Source:          source,
		Evaluation:      e.cfg.Evaluation.Accuracy(),
		Threshold:       e.cfg.Evaluation.AlphaThreshold,
		RecessionSeries: e.cfg.Data.RecessionSeries,
		StartDate:       e.cfg.Data.StartDate.Time,
		MaxRegions:      e.cfg.Data.MaxRegions,
		OutputDir:       e.cfg.Data.OutputDir,
		ChunkRows:       e.cfg.Data.ChunkRowSize,
		Logger:          e.logger,
	}

	if dsn := e.cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		opts.RunStore = pgstore.NewBatchRunStore(pool)
	}
	if dsn := e.cfg.Storage.ClickHouseDSN; dsn != "" {
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()
		opts.SignalStore = chstore.NewSignalStore(conn)
		opts.StatsStore = chstore.NewRegionStatsStore(conn)
	}

	runner := pipeline.NewBatchRunner(opts)
	job := func(ctx context.Context) error {
		return runOnce(ctx, runner, e.cfg.Data.RegionsFile, e.logger)
	}

	if batchSchedule != "" {
		return pipeline.Schedule(ctx, batchSchedule, job, e.logger)
	}
	return job(ctx)
}

// runOnce reloads the region list and runs one batch.
func runOnce(ctx context.Context, runner *pipeline.BatchRunner, regionsFile string, logger zerolog.Logger) error {
	regions, err := ingestion.LoadRegions(regionsFile)
	if err != nil {
		return err
	}

	run, err := runner.Run(ctx, regions)
	if err != nil {
		return err
	}
	logger.Info().
		Str("run_id", run.RunID).
		Int("regions", run.Regions).
		Int("failed", run.Failed).
		Int("chunks", run.Chunks).
		Msg("batch complete")
	return nil
}

func applyBatchFlags(cfg *config.Config) {
	if batchMetricsAddr != "" {
		cfg.Metrics.Addr = batchMetricsAddr
	}
	if batchRegions != "" {
		cfg.Data.RegionsFile = batchRegions
	}
	if batchOutputDir != "" {
		cfg.Data.OutputDir = batchOutputDir
	}
	if batchMaxRegions >= 0 {
		cfg.Data.MaxRegions = batchMaxRegions
	}
}
