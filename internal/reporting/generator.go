package reporting

import (
	"context"
	"fmt"

	"sahm-rule-lab/internal/storage"
)

// Generator rebuilds batch outputs of a stored run.
type Generator struct {
	signalStore storage.SignalStore
	statsStore  storage.RegionStatsStore
}

// NewGenerator creates a new report generator.
func NewGenerator(signalStore storage.SignalStore, statsStore storage.RegionStatsStore) *Generator {
	return &Generator{
		signalStore: signalStore,
		statsStore:  statsStore,
	}
}

// Export writes the outputs of runID through w, regions ordered by id.
// Returns storage.ErrNotFound if the run has no stats.
func (g *Generator) Export(ctx context.Context, runID string, w *BatchWriter) error {
	stats, err := g.statsStore.GetByRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return storage.ErrNotFound
	}

	for _, s := range stats {
		points, err := g.signalStore.GetByRegion(ctx, runID, s.RegionID)
		if err != nil {
			return fmt.Errorf("load region %s: %w", s.RegionID, err)
		}
		if err := w.AddRegion(points); err != nil {
			return err
		}
	}

	return w.Close(stats)
}
