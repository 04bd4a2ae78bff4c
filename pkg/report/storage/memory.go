package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ruleforge-hq/anvil/pkg/report"
)

// MemoryStorage implements report.Storage with an in-memory map. Runs are
// lost when the process exits.
type MemoryStorage struct {
	runs map[string]*report.Run
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs: make(map[string]*report.Run),
	}
}

// Store persists a copy of run.
func (s *MemoryStorage) Store(ctx context.Context, run *report.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = copyRun(run)
	return nil
}

// Get returns the run with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*report.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	return copyRun(run), nil
}

// Query returns the runs matching q, newest first.
func (s *MemoryStorage) Query(ctx context.Context, q *report.Query) ([]*report.Run, error) {
	if err := report.Validate(q, 0); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*report.Run, 0)
	for _, run := range s.runs {
		if q.Matches(run) {
			results = append(results, copyRun(run))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if !results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].StartedAt.After(results[j].StartedAt)
		}
		return results[i].ID < results[j].ID
	})

	if q.Offset >= len(results) {
		return []*report.Run{}, nil
	}
	results = results[q.Offset:]
	if q.Limit > 0 && q.Limit < len(results) {
		results = results[:q.Limit]
	}
	return results, nil
}

// Count returns the number of runs matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *report.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, run := range s.runs {
		if q.Matches(run) {
			count++
		}
	}
	return count, nil
}

// Prune deletes runs started before the given time.
func (s *MemoryStorage) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, run := range s.runs {
		if run.StartedAt.Before(before) {
			delete(s.runs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

func copyRun(run *report.Run) *report.Run {
	c := *run
	c.Violations = append([]report.Violation(nil), run.Violations...)
	return &c
}
