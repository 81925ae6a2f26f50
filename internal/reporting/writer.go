package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sahm-rule-lab/internal/domain"
)

// Output file names.
const (
	AggregatedFile = "map-data-aggregated.csv"
	InfoFile       = "info.csv"
)

// ChunkFile returns the name of the n-th time-series chunk (1-based).
func ChunkFile(n int) string {
	return fmt.Sprintf("chunk-%d.csv", n)
}

// BatchWriter writes batch outputs to a directory.
// Region rows are buffered and written as a chunk once the buffer holds at
// least chunkRows rows, so a region never spans two chunks.
type BatchWriter struct {
	dir       string
	chunkRows int
	buf       []domain.SignalPoint
	chunks    int
	now       func() time.Time // Injectable clock for deterministic output
}

// NewBatchWriter creates dir if needed and returns a writer into it.
func NewBatchWriter(dir string, chunkRows int) (*BatchWriter, error) {
	if chunkRows < 1 {
		return nil, fmt.Errorf("chunk row size must be positive, got %d", chunkRows)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &BatchWriter{
		dir:       dir,
		chunkRows: chunkRows,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock sets a custom clock function for deterministic output.
func (w *BatchWriter) WithClock(now func() time.Time) *BatchWriter {
	w.now = now
	return w
}

// AddRegion buffers the rows of one region and writes a chunk when the
// buffer is full.
func (w *BatchWriter) AddRegion(points []domain.SignalPoint) error {
	w.buf = append(w.buf, points...)
	if len(w.buf) >= w.chunkRows {
		return w.flush()
	}
	return nil
}

// Chunks returns the number of chunks written so far.
func (w *BatchWriter) Chunks() int {
	return w.chunks
}

// Close writes the remaining rows, the aggregated stats and the info file.
func (w *BatchWriter) Close(stats []domain.RegionStats) error {
	if len(w.buf) > 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if err := w.write(AggregatedFile, RenderAggregatedCSV(stats)); err != nil {
		return err
	}
	return w.write(InfoFile, RenderInfoCSV(w.chunks, w.now()))
}

func (w *BatchWriter) flush() error {
	if err := w.write(ChunkFile(w.chunks+1), RenderSignalCSV(w.buf)); err != nil {
		return err
	}
	w.chunks++
	w.buf = w.buf[:0]
	return nil
}

func (w *BatchWriter) write(name, content string) error {
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
