package clickhouse

import (
	"context"
	"fmt"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using ClickHouse.
// Missing signal values are stored as NULL.
type SignalStore struct {
	conn *Conn
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(conn *Conn) *SignalStore {
	return &SignalStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

type regionKey struct {
	runID    string
	regionID string
}

// InsertBulk adds multiple points. Fails entire batch if any
// (run_id, region_id) in it already has rows, or on an intra-batch duplicate.
func (s *SignalStore) InsertBulk(ctx context.Context, points []domain.SignalPoint) (err error) {
	if len(points) == 0 {
		return nil
	}

	type pointKey struct {
		regionKey
		date int64
	}
	seen := make(map[pointKey]struct{}, len(points))
	regions := make(map[regionKey]struct{})
	for _, p := range points {
		if p.RunID == "" || p.RegionID == "" {
			return storage.ErrInvalidInput
		}
		rk := regionKey{p.RunID, p.RegionID}
		k := pointKey{rk, p.Date.Unix()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		regions[rk] = struct{}{}
	}

	// Regions are written whole, so checking one key per region suffices.
	for rk := range regions {
		exists, err := s.regionExists(ctx, rk)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	started := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "insert_signal", time.Since(started), err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signal_timeseries (
			run_id, region_id, date, unemployment_rate, sahm_value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		var value *float64
		if p.Signal.Valid {
			v := p.Signal.Float64
			value = &v
		}
		if err := batch.Append(p.RunID, p.RegionID, p.Date.UTC(), p.UnemploymentRate, value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRegion retrieves the points of one region in one run, ordered by date ASC.
func (s *SignalStore) GetByRegion(ctx context.Context, runID, regionID string) ([]domain.SignalPoint, error) {
	query := `
		SELECT run_id, region_id, date, unemployment_rate, sahm_value
		FROM signal_timeseries FINAL
		WHERE run_id = ? AND region_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, regionID)
	if err != nil {
		return nil, fmt.Errorf("query by region: %w", err)
	}
	defer rows.Close()

	var points []domain.SignalPoint
	for rows.Next() {
		var (
			p     domain.SignalPoint
			value *float64
		)
		if err := rows.Scan(&p.RunID, &p.RegionID, &p.Date, &p.UnemploymentRate, &value); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		p.Date = p.Date.UTC()
		if value != nil {
			p.Signal = domain.Float(*value)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return points, nil
}

func (s *SignalStore) regionExists(ctx context.Context, rk regionKey) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM signal_timeseries
		WHERE run_id = ? AND region_id = ?
	`, rk.runID, rk.regionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
