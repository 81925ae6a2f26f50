package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
// Missing values are stored as NULL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Upsert inserts observations in one batch, replacing rows with the same
// (series_id, date). The whole batch commits or none of it does.
func (s *ObservationStore) Upsert(ctx context.Context, obs []domain.Observation) (err error) {
	if len(obs) == 0 {
		return nil
	}
	for _, o := range obs {
		if o.SeriesID == "" || o.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	started := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "upsert_observations", time.Since(started), err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO observations (series_id, date, value, deseasonalized_value, fetched_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (series_id, date) DO UPDATE
		SET value = EXCLUDED.value,
		    deseasonalized_value = EXCLUDED.deseasonalized_value,
		    fetched_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(query, o.SeriesID, o.Date.UTC(), nullable(o.Value), nullable(o.Deseasonalized))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetSeries retrieves all observations of a series, ordered by date ASC.
func (s *ObservationStore) GetSeries(ctx context.Context, seriesID string) ([]domain.Observation, error) {
	obs, err := s.GetRange(ctx, seriesID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, storage.ErrNotFound
	}
	return obs, nil
}

// GetRange retrieves observations within [from, to] (inclusive), ordered by date ASC.
func (s *ObservationStore) GetRange(ctx context.Context, seriesID string, from, to time.Time) (obs []domain.Observation, err error) {
	started := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "get_observations", time.Since(started), err) }()

	query := `
		SELECT series_id, date, value, deseasonalized_value
		FROM observations
		WHERE series_id = $1
		  AND ($2::date IS NULL OR date >= $2)
		  AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("get observations: %w", err)
	}
	defer rows.Close()

	return scanObservations(rows)
}

// ListSeries returns the ids of all cached series, sorted.
func (s *ObservationStore) ListSeries(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT series_id FROM observations ORDER BY series_id`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan series id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanObservations scans multiple rows into a slice of Observation.
func scanObservations(rows pgx.Rows) ([]domain.Observation, error) {
	var result []domain.Observation

	for rows.Next() {
		var (
			o              domain.Observation
			value          *float64
			deseasonalized *float64
		)
		if err := rows.Scan(&o.SeriesID, &o.Date, &value, &deseasonalized); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.Date = o.Date.UTC()
		o.Value = fromNullable(value)
		o.Deseasonalized = fromNullable(deseasonalized)
		result = append(result, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

func nullable(v domain.NullFloat) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func fromNullable(v *float64) domain.NullFloat {
	if v == nil {
		return domain.Missing
	}
	return domain.Float(*v)
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
