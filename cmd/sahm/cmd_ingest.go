package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/ingestion"
	pgstore "sahm-rule-lab/internal/storage/postgres"
)

// ingestCmd copies series into the PostgreSQL cache
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch series from FRED into the PostgreSQL cache",
	Long: `Fetch monthly observations and upsert them into the observations table.
Without --series every series referenced by a configured line is ingested.

Examples:
  sahm ingest
  sahm ingest --series UNRATE,U6RATE --start 1990-01-01
  sahm ingest --data-dir testdata/series`,
	RunE: runIngest,
}

var (
	ingestSeries  []string
	ingestStart   string
	ingestDataDir string
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringSliceVar(&ingestSeries, "series", nil, "Series ids to ingest (default: all line series)")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "First observation date, YYYY-MM-DD (default: data.start_date)")
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "Read series from <dir>/<series_id>.csv instead of FRED")
}

func runIngest(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for ingest")
	}

	start := e.cfg.Data.StartDate.Time
	if ingestStart != "" {
		if start, err = time.Parse(time.DateOnly, ingestStart); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	series := ingestSeries
	if len(series) == 0 {
		series = e.cfg.SeriesIDs()
	}
	if len(series) == 0 {
		return fmt.Errorf("no series to ingest")
	}

	ctx, cancel := signalContext(e.logger)
	defer cancel()

	var source ingestion.SeriesSource
	if ingestDataDir != "" {
		source = ingestion.NewCSVSource(ingestDataDir)
	} else {
		fredSrc, release, err := e.fredSource()
		if err != nil {
			return err
		}
		defer release()
		source = fredSrc
	}

	pool, err := pgstore.NewPool(ctx, e.cfg.Storage.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	mgr := ingestion.NewManager(ingestion.ManagerOptions{
		Source: source,
		Store:  pgstore.NewObservationStore(pool),
		Logger: e.logger,
	})

	results, err := mgr.IngestAll(ctx, series, start)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s FAILED  %v\n", r.SeriesID, r.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-24s %6d observations\n", r.SeriesID, r.Count)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d series failed", failed, len(results))
	}
	return nil
}
