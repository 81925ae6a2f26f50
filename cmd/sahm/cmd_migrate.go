package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sahm-rule-lab/internal/storage/migrations"
	pgstore "sahm-rule-lab/internal/storage/postgres"
)

// migrateCmd applies the embedded schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL and ClickHouse migrations",
	Long: `Apply the embedded migrations to every configured database.
Migrations are idempotent and safe to run repeatedly.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.Storage.PostgresDSN == "" && e.cfg.Storage.ClickHouseDSN == "" {
		return fmt.Errorf("no database configured")
	}

	ctx, cancel := signalContext(e.logger)
	defer cancel()

	if dsn := e.cfg.Storage.PostgresDSN; dsn != "" {
		pool, err := pgstore.NewPool(ctx, dsn)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			return err
		}
		e.logger.Info().Strs("files", applied).Msg("postgres migrations applied")
	}

	if dsn := e.cfg.Storage.ClickHouseDSN; dsn != "" {
		conn, applied, err := migrations.RunClickhouseMigrations(ctx, dsn)
		if err != nil {
			return err
		}
		defer conn.Close()
		e.logger.Info().Strs("files", applied).Msg("clickhouse migrations applied")
	}

	return nil
}
