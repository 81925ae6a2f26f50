package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/config"
	"sahm-rule-lab/internal/ingestion"
	"sahm-rule-lab/internal/pipeline"
	"sahm-rule-lab/internal/reporting"
	pgstore "sahm-rule-lab/internal/storage/postgres"
)

// computeCmd analyzes configured lines
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute and evaluate the signal of configured lines",
	Long: `Load the series of each selected line, align them, compute the signal,
evaluate it against the line's recession series and print a Markdown report.

Series are read from CSV files with --data-dir, otherwise from the PostgreSQL
cache when storage.postgres_dsn is set, otherwise from FRED. FRED responses are
kept in Redis for storage.cache_ttl when storage.redis_addr is set.

Examples:
  sahm compute --line u3
  sahm compute --all --output report.md
  sahm compute --line u3,u6 --data-dir testdata/series`,
	RunE: runCompute,
}

var (
	computeLines       []string
	computeAll         bool
	computeDataDir     string
	computeOutput      string
	computeConcurrency int
)

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringSliceVar(&computeLines, "line", nil, "Line ids to analyze")
	computeCmd.Flags().BoolVar(&computeAll, "all", false, "Analyze every configured line")
	computeCmd.Flags().StringVar(&computeDataDir, "data-dir", "", "Read series from <dir>/<series_id>.csv")
	computeCmd.Flags().StringVar(&computeOutput, "output", "", "Output file (default: stdout)")
	computeCmd.Flags().IntVar(&computeConcurrency, "concurrency", 4, "Lines analyzed in parallel")
}

func runCompute(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	lines, err := selectLines(e.cfg, computeLines, computeAll)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(e.logger)
	defer cancel()

	var source ingestion.SeriesSource
	switch {
	case computeDataDir != "":
		source = ingestion.NewCSVSource(computeDataDir)
	case e.cfg.Storage.PostgresDSN != "":
		pool, err := pgstore.NewPool(ctx, e.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		source = ingestion.NewStoreSource(pgstore.NewObservationStore(pool))
	default:
		fredSrc, release, err := e.fredSource()
		if err != nil {
			return err
		}
		defer release()
		source = fredSrc
	}

	analyzer := pipeline.NewAnalyzer(pipeline.AnalyzerOptions{
		Source:     source,
		Evaluation: e.cfg.Evaluation.Accuracy(),
		StartDate:  e.cfg.Data.StartDate.Time,
		Logger:     e.logger,
	})

	analyses, err := analyzer.AnalyzeAll(ctx, lines, computeConcurrency)
	if err != nil {
		return err
	}

	md := reporting.RenderMarkdown(pipeline.NewLineReport(analyses, time.Now().UTC()))
	if computeOutput == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	}
	if err := os.WriteFile(computeOutput, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	e.logger.Info().Str("path", computeOutput).Msg("report written")
	return nil
}

// selectLines resolves the requested line ids.
func selectLines(cfg *config.Config, ids []string, all bool) ([]config.Line, error) {
	if all {
		if len(cfg.Lines) == 0 {
			return nil, fmt.Errorf("no lines configured")
		}
		return cfg.Lines, nil
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("specify --line or --all")
	}

	lines := make([]config.Line, 0, len(ids))
	for _, id := range ids {
		l, err := cfg.Line(id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}
