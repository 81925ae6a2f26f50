package clickhouse

import (
	"context"
	"fmt"
	"time"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/observability"
	"sahm-rule-lab/internal/storage"
)

// RegionStatsStore implements storage.RegionStatsStore using ClickHouse.
type RegionStatsStore struct {
	conn *Conn
}

// NewRegionStatsStore creates a new RegionStatsStore.
func NewRegionStatsStore(conn *Conn) *RegionStatsStore {
	return &RegionStatsStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RegionStatsStore = (*RegionStatsStore)(nil)

// InsertBulk adds multiple stats. Fails entire batch on duplicate (run_id, region_id).
func (s *RegionStatsStore) InsertBulk(ctx context.Context, stats []domain.RegionStats) (err error) {
	if len(stats) == 0 {
		return nil
	}

	seen := make(map[regionKey]struct{}, len(stats))
	for _, st := range stats {
		if st.RunID == "" || st.RegionID == "" {
			return storage.ErrInvalidInput
		}
		k := regionKey{st.RunID, st.RegionID}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for k := range seen {
		exists, err := s.exists(ctx, k)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	started := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", "insert_region_stats", time.Since(started), err) }()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO region_stats (
			run_id, region_id, signal_starts, accuracy,
			recession_lead_time, committee_lead_time, computed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range stats {
		err = batch.Append(
			st.RunID, st.RegionID, uint32(st.SignalStarts),
			toInt32(st.Accuracy), toInt32(st.RecessionLeadTime), toInt32(st.CommitteeLeadTime),
			st.ComputedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all stats of a run, ordered by region_id ASC.
func (s *RegionStatsStore) GetByRun(ctx context.Context, runID string) ([]domain.RegionStats, error) {
	query := `
		SELECT run_id, region_id, signal_starts, accuracy,
		       recession_lead_time, committee_lead_time, computed_at
		FROM region_stats FINAL
		WHERE run_id = ?
		ORDER BY region_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	var result []domain.RegionStats
	for rows.Next() {
		var (
			st                        domain.RegionStats
			starts                    uint32
			accuracy, lead, committee *int32
		)
		err := rows.Scan(&st.RunID, &st.RegionID, &starts, &accuracy, &lead, &committee, &st.ComputedAt)
		if err != nil {
			return nil, fmt.Errorf("scan region stats row: %w", err)
		}
		st.SignalStarts = int(starts)
		st.Accuracy = fromInt32(accuracy)
		st.RecessionLeadTime = fromInt32(lead)
		st.CommitteeLeadTime = fromInt32(committee)
		result = append(result, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region stats rows: %w", err)
	}
	return result, nil
}

func (s *RegionStatsStore) exists(ctx context.Context, k regionKey) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM region_stats
		WHERE run_id = ? AND region_id = ?
	`, k.runID, k.regionID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func toInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	i := int32(*v)
	return &i
}

func fromInt32(v *int32) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
