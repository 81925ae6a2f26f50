package memory

import (
	"context"
	"sync"

	"sahm-rule-lab/internal/domain"
	"sahm-rule-lab/internal/storage"
)

// BatchRunStore is an in-memory implementation of storage.BatchRunStore.
type BatchRunStore struct {
	mu    sync.RWMutex
	runs  map[string]domain.BatchRun
	order []string // run ids in start order
}

// NewBatchRunStore creates a new in-memory batch run store.
func NewBatchRunStore() *BatchRunStore {
	return &BatchRunStore{
		runs: make(map[string]domain.BatchRun),
	}
}

// Start records a new run.
func (s *BatchRunStore) Start(_ context.Context, run *domain.BatchRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.runs[run.RunID] = copyRun(*run)
	s.order = append(s.order, run.RunID)
	return nil
}

// Finish stores the final counters and finish time of a run.
func (s *BatchRunStore) Finish(_ context.Context, run *domain.BatchRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.runs[run.RunID]
	if !exists {
		return storage.ErrNotFound
	}
	stored.FinishedAt = run.FinishedAt
	stored.Regions = run.Regions
	stored.Failed = run.Failed
	stored.Chunks = run.Chunks
	s.runs[run.RunID] = copyRun(stored)
	return nil
}

// GetLatest returns the most recently started run.
func (s *BatchRunStore) GetLatest(_ context.Context) (*domain.BatchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, storage.ErrNotFound
	}
	run := copyRun(s.runs[s.order[len(s.order)-1]])
	return &run, nil
}

func copyRun(r domain.BatchRun) domain.BatchRun {
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		r.FinishedAt = &t
	}
	return r
}

var _ storage.BatchRunStore = (*BatchRunStore)(nil)
