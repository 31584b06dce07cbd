package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure DelayedStore implements the interface.
var _ driven.DelayedJobStore = (*DelayedStore)(nil)

// DelayedStore is an in-memory driven.DelayedJobStore.
type DelayedStore struct {
	mu   sync.Mutex
	jobs map[string]domain.DelayedJob
}

// NewDelayedStore creates an empty delayed job store.
func NewDelayedStore() *DelayedStore {
	return &DelayedStore{jobs: make(map[string]domain.DelayedJob)}
}

// Schedule stores or replaces a job.
func (s *DelayedStore) Schedule(_ context.Context, job domain.DelayedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Key()] = job
	return nil
}

// Due returns jobs due at or before now, earliest first.
func (s *DelayedStore) Due(_ context.Context, now time.Time, limit int) ([]domain.DelayedJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.DelayedJob
	for _, j := range s.jobs {
		if !j.DueAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].DueAt.Before(due[k].DueAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Remove deletes a job unless it was rescheduled to another deadline.
func (s *DelayedStore) Remove(_ context.Context, job domain.DelayedJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := job.Key()
	if stored, ok := s.jobs[key]; ok && stored.DueAt.Equal(job.DueAt) {
		delete(s.jobs, key)
	}
	return nil
}

// All returns every scheduled job, earliest first.
func (s *DelayedStore) All() []domain.DelayedJob {
	due, _ := s.Due(context.Background(), time.Unix(1<<40, 0), 0)
	return due
}
