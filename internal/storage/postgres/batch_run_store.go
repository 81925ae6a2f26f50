package postgres

import (
	"context"
	"fmt"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// BatchRunStore is a PostgreSQL implementation of storage.BatchRunStore
// backed by the batch_runs table.
type BatchRunStore struct {
	pool *Pool
}

// NewBatchRunStore creates a new PostgreSQL batch run store.
func NewBatchRunStore(pool *Pool) *BatchRunStore {
	return &BatchRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BatchRunStore = (*BatchRunStore)(nil)

// Start records a new run.
func (s *BatchRunStore) Start(ctx context.Context, run *domain.BatchRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO batch_runs (run_id, started_at, regions, failed, chunks)
		VALUES ($1, $2, $3, $4, $5)
	`, run.RunID, run.StartedAt, run.Regions, run.Failed, run.Chunks)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("start batch run: %w", err)
	}
	return nil
}

// Finish stores the final counters and finish time of a run.
func (s *BatchRunStore) Finish(ctx context.Context, run *domain.BatchRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE batch_runs
		SET finished_at = $2, regions = $3, failed = $4, chunks = $5
		WHERE run_id = $1
	`, run.RunID, run.FinishedAt, run.Regions, run.Failed, run.Chunks)
	if err != nil {
		return fmt.Errorf("finish batch run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetLatest returns the most recently started run.
func (s *BatchRunStore) GetLatest(ctx context.Context) (*domain.BatchRun, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, started_at, finished_at, regions, failed, chunks
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)

	var run domain.BatchRun
	err := row.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &run.Regions, &run.Failed, &run.Chunks)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest batch run: %w", err)
	}
	return &run, nil
}
