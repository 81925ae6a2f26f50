package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

func TestBatchRunStore_Lifecycle(t *testing.T) {
	store := NewBatchRunStore()
	ctx := context.Background()

	if _, err := store.GetLatest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	started := time.Date(2024, time.May, 1, 6, 0, 0, 0, time.UTC)
	if err := store.Start(ctx, &domain.BatchRun{RunID: "r1", StartedAt: started}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := store.Start(ctx, &domain.BatchRun{RunID: "r2", StartedAt: started.Add(time.Hour)}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	finished := started.Add(2 * time.Hour)
	err := store.Finish(ctx, &domain.BatchRun{RunID: "r2", FinishedAt: &finished, Regions: 10, Failed: 1, Chunks: 2})
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	latest, err := store.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.RunID != "r2" || latest.Regions != 10 || latest.Failed != 1 || latest.Chunks != 2 {
		t.Errorf("Unexpected latest run %+v", latest)
	}
	if latest.FinishedAt == nil || !latest.FinishedAt.Equal(finished) {
		t.Errorf("Expected finished at %v, got %v", finished, latest.FinishedAt)
	}
	if !latest.StartedAt.Equal(started.Add(time.Hour)) {
		t.Errorf("Finish must keep the start time, got %v", latest.StartedAt)
	}
}

func TestBatchRunStore_Errors(t *testing.T) {
	store := NewBatchRunStore()
	ctx := context.Background()

	_ = store.Start(ctx, &domain.BatchRun{RunID: "r1"})
	if err := store.Start(ctx, &domain.BatchRun{RunID: "r1"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Finish(ctx, &domain.BatchRun{RunID: "nope"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Start(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
