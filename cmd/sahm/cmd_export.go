package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/reporting"
	chstore "sahm-rule-lab/internal/storage/clickhouse"
	pgstore "sahm-rule-lab/internal/storage/postgres"
)

// exportCmd rebuilds CSV outputs from ClickHouse
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Rebuild the CSV outputs of a stored batch run",
	Long: `Read the signal rows and region stats of a batch run back from ClickHouse
and write them in the batch output layout.

Without --run-id the latest run recorded in PostgreSQL is exported.

Examples:
  sahm export --output-dir out/rebuilt
  sahm export --run-id 6f1c2a0e-4d55-4c3a-9a2e-1b7d0c9f8e21`,
	RunE: runExport,
}

var (
	exportRunID     string
	exportOutputDir string
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportRunID, "run-id", "", "Batch run to export (default: latest)")
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", "", "Output directory (default: data.output_dir)")
}

func runExport(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Storage.ClickHouseDSN == "" {
		return fmt.Errorf("storage.clickhouse_dsn is required for export")
	}

	ctx, cancel := signalContext(e.logger)
	defer cancel()

	runID := exportRunID
	if runID == "" {
		if e.cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("--run-id is required without storage.postgres_dsn")
		}
		pool, err := pgstore.NewPool(ctx, e.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		latest, err := pgstore.NewBatchRunStore(pool).GetLatest(ctx)
		pool.Close()
		if err != nil {
			return fmt.Errorf("find latest run: %w", err)
		}
		runID = latest.RunID
	}

	conn, err := chstore.NewConn(ctx, e.cfg.Storage.ClickHouseDSN)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer conn.Close()

	outputDir := e.cfg.Data.OutputDir
	if exportOutputDir != "" {
		outputDir = exportOutputDir
	}
	w, err := reporting.NewBatchWriter(outputDir, e.cfg.Data.ChunkRowSize)
	if err != nil {
		return err
	}

	gen := reporting.NewGenerator(chstore.NewSignalStore(conn), chstore.NewRegionStatsStore(conn))
	if err := gen.Export(ctx, runID, w); err != nil {
		return fmt.Errorf("export run %s: %w", runID, err)
	}

	e.logger.Info().
		Str("run_id", runID).
		Str("dir", outputDir).
		Int("chunks", w.Chunks()).
		Msg("run exported")
	return nil
}
