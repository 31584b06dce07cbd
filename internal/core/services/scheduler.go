package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Runner = (*Scheduler)(nil)

// pumpBatch caps the delayed jobs moved per tick.
const pumpBatch = 100

// Scheduler moves due delayed jobs onto the work queue.
type Scheduler struct {
	delayed  driven.DelayedJobStore
	queue    driven.JobQueue
	interval time.Duration
	log      logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler that checks for due jobs every interval.
func NewScheduler(delayed driven.DelayedJobStore, queue driven.JobQueue, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		delayed:  delayed,
		queue:    queue,
		interval: interval,
		log:      logger.With("scheduler"),
		now:      time.Now,
	}
}

// Run pumps until ctx is cancelled or Stop is called.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.log.Info("scheduler started (interval %s)", s.interval)
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Stop ends a running Run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.Pump(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Error("pump: %v", err)
	}
	if n > 0 {
		s.log.Info("re-enqueued %d delayed jobs", n)
	}
}

// Pump enqueues every job that is due and removes it from the delayed
// store. A job is removed only after it was enqueued, so a crash in
// between delivers it twice rather than never.
func (s *Scheduler) Pump(ctx context.Context) (int, error) {
	moved := 0
	for {
		due, err := s.delayed.Due(ctx, s.now(), pumpBatch)
		if err != nil {
			return moved, err
		}
		for _, job := range due {
			if err := s.queue.Enqueue(ctx, job.Kind, job.UserID, job.FileID); err != nil {
				return moved, err
			}
			if err := s.delayed.Remove(ctx, job); err != nil {
				return moved, err
			}
			moved++
		}
		if len(due) < pumpBatch {
			return moved, nil
		}
	}
}
