package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

func TestSignalStore_InsertBulkAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	points := []domain.SignalPoint{
		{RunID: "r1", RegionID: "01001", Date: month(2020, time.February), UnemploymentRate: 2.9, Signal: domain.Float(0.1)},
		{RunID: "r1", RegionID: "01001", Date: month(2020, time.January), UnemploymentRate: 2.7, Signal: domain.Missing},
		{RunID: "r1", RegionID: "01003", Date: month(2020, time.January), UnemploymentRate: 3.1, Signal: domain.Missing},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByRegion(ctx, "r1", "01001")
	if err != nil {
		t.Fatalf("GetByRegion failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 points, got %d", len(result))
	}
	if result[0].Signal.Valid {
		t.Error("Expected first point to be missing")
	}
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	points := []domain.SignalPoint{{RunID: "r1", RegionID: "01001", Date: month(2020, time.January)}}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, points); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same region and date in another run is a different key.
	points[0].RunID = "r2"
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Errorf("Insert for new run failed: %v", err)
	}
}

func TestSignalStore_IntraBatchDuplicate(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	p := domain.SignalPoint{RunID: "r1", RegionID: "01001", Date: month(2020, time.January)}
	if err := store.InsertBulk(ctx, []domain.SignalPoint{p, p}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	result, _ := store.GetByRegion(ctx, "r1", "01001")
	if len(result) != 0 {
		t.Errorf("Expected 0 points after failed batch, got %d", len(result))
	}
}
