package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestSignalStore_InsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	points := []domain.SignalPoint{
		{RunID: "run-1", RegionID: "01001", Date: month(2020, time.January), UnemploymentRate: 2.7, Signal: domain.Missing},
		{RunID: "run-1", RegionID: "01001", Date: month(2020, time.February), UnemploymentRate: 2.9, Signal: domain.Float(0.13)},
		{RunID: "run-1", RegionID: "01003", Date: month(2020, time.January), UnemploymentRate: 3.0, Signal: domain.Float(0.2)},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByRegion(ctx, "run-1", "01001")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, month(2020, time.January), got[0].Date)
	assert.False(t, got[0].Signal.Valid)
	assert.InDelta(t, 0.13, got[1].Signal.Float64, 1e-9)
	assert.Equal(t, 2.9, got[1].UnemploymentRate)
}

func TestSignalStore_DuplicateRegion(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	points := []domain.SignalPoint{{RunID: "run-1", RegionID: "01001", Date: month(2020, time.January), UnemploymentRate: 2.7}}
	require.NoError(t, store.InsertBulk(ctx, points))

	err := store.InsertBulk(ctx, points)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, append(points[:0:0], points[0], points[0]))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []domain.SignalPoint{{RegionID: "01001"}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
