package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestObservationStore_UpsertAndGet(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	obs := []domain.Observation{
		{SeriesID: "UNRATE", Date: month(2020, time.March), Value: domain.Float(4.4)},
		{SeriesID: "UNRATE", Date: month(2020, time.January), Value: domain.Float(3.5)},
		{SeriesID: "USREC", Date: month(2020, time.March), Value: domain.Float(1)},
	}
	if err := store.Upsert(ctx, obs); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, err := store.GetSeries(ctx, "UNRATE")
	if err != nil {
		t.Fatalf("GetSeries failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 observations, got %d", len(result))
	}
	if !result[0].Date.Equal(month(2020, time.January)) {
		t.Errorf("Expected ascending order, first date %v", result[0].Date)
	}

	ids, _ := store.ListSeries(ctx)
	if len(ids) != 2 || ids[0] != "UNRATE" || ids[1] != "USREC" {
		t.Errorf("Unexpected series list %v", ids)
	}
}

func TestObservationStore_UpsertReplacesRevisedValue(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	_ = store.Upsert(ctx, []domain.Observation{{SeriesID: "UNRATE", Date: month(2020, time.April), Value: domain.Float(14.7)}})
	_ = store.Upsert(ctx, []domain.Observation{{SeriesID: "UNRATE", Date: month(2020, time.April), Value: domain.Float(14.8)}})

	result, _ := store.GetSeries(ctx, "UNRATE")
	if len(result) != 1 {
		t.Fatalf("Expected 1 observation, got %d", len(result))
	}
	if result[0].Value.Float64 != 14.8 {
		t.Errorf("Expected revised value 14.8, got %v", result[0].Value.Float64)
	}
}

func TestObservationStore_GetRange(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	var obs []domain.Observation
	for m := time.January; m <= time.December; m++ {
		obs = append(obs, domain.Observation{SeriesID: "UNRATE", Date: month(2019, m), Value: domain.Float(float64(m))})
	}
	_ = store.Upsert(ctx, obs)

	result, err := store.GetRange(ctx, "UNRATE", month(2019, time.March), month(2019, time.May))
	if err != nil {
		t.Fatalf("GetRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("Expected 3 observations (inclusive range), got %d", len(result))
	}

	open, _ := store.GetRange(ctx, "UNRATE", month(2019, time.November), time.Time{})
	if len(open) != 2 {
		t.Errorf("Expected 2 observations for open range, got %d", len(open))
	}
}

func TestObservationStore_Errors(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	if _, err := store.GetSeries(ctx, "MISSING"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	err := store.Upsert(ctx, []domain.Observation{
		{SeriesID: "UNRATE", Date: month(2020, time.January)},
		{SeriesID: "", Date: month(2020, time.February)},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if ids, _ := store.ListSeries(ctx); len(ids) != 0 {
		t.Errorf("Expected nothing written on invalid batch, got %v", ids)
	}
}
