// Package memory provides in-process implementations of the job queue and
// the delayed job store. They keep the same at-least-once contract as the
// Redis adapter: a read message stays pending until acknowledged.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

type message struct {
	id  string
	job domain.Job
}

type pendingEntry struct {
	msg         message
	consumer    string
	deliveredAt time.Time
	attempts    int64
}

type stream struct {
	ready   []message
	pending map[string]*pendingEntry
	signal  chan struct{}
}

// Queue is an in-memory driven.JobQueue.
type Queue struct {
	mu      sync.Mutex
	seq     int64
	now     func() time.Time
	streams map[domain.JobKind]*stream
	closed  bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the clock used for enqueue stamps and idle times.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates an empty queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{now: time.Now, streams: make(map[domain.JobKind]*stream)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) stream(kind domain.JobKind) *stream {
	s, ok := q.streams[kind]
	if !ok {
		s = &stream{pending: make(map[string]*pendingEntry), signal: make(chan struct{})}
		q.streams[kind] = s
	}
	return s
}

// Enqueue appends a job.
func (q *Queue) Enqueue(_ context.Context, kind domain.JobKind, userID, fileID string) error {
	job, err := domain.NewJob(kind, userID, fileID, q.now())
	if err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%w: queue closed", domain.ErrQueueUnavailable)
	}
	q.seq++
	s := q.stream(kind)
	s.ready = append(s.ready, message{id: strconv.FormatInt(q.seq, 10), job: job})
	close(s.signal)
	s.signal = make(chan struct{})
	return nil
}

// Read waits up to block for the next message.
func (q *Queue) Read(ctx context.Context, kind domain.JobKind, consumer string, block time.Duration) (*domain.Delivery, error) {
	timer := time.NewTimer(block)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, fmt.Errorf("%w: queue closed", domain.ErrQueueUnavailable)
		}
		s := q.stream(kind)
		if len(s.ready) > 0 {
			msg := s.ready[0]
			s.ready = s.ready[1:]
			s.pending[msg.id] = &pendingEntry{msg: msg, consumer: consumer, deliveredAt: q.now(), attempts: 1}
			q.mu.Unlock()
			return &domain.Delivery{ID: msg.id, Kind: kind, Job: msg.job, Attempts: 1}, nil
		}
		signal := s.signal
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-signal:
		}
	}
}

// Ack drops a delivery from the pending list.
func (q *Queue) Ack(_ context.Context, d *domain.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.stream(d.Kind).pending, d.ID)
	return nil
}

// Reclaim hands messages idle for at least minIdle to consumer.
func (q *Queue) Reclaim(_ context.Context, kind domain.JobKind, consumer string, minIdle time.Duration, count int) ([]domain.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stream(kind)
	now := q.now()
	ids := make([]string, 0, len(s.pending))
	for id, e := range s.pending {
		if now.Sub(e.deliveredAt) >= minIdle {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
	if len(ids) > count {
		ids = ids[:count]
	}

	out := make([]domain.Delivery, 0, len(ids))
	for _, id := range ids {
		e := s.pending[id]
		e.consumer = consumer
		e.deliveredAt = now
		e.attempts++
		out = append(out, domain.Delivery{ID: id, Kind: kind, Job: e.msg.job, Attempts: e.attempts})
	}
	return out, nil
}

// Close makes every later call fail.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Queued returns the jobs of kind not yet read, oldest first.
func (q *Queue) Queued(kind domain.JobKind) []domain.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stream(kind)
	jobs := make([]domain.Job, len(s.ready))
	for i, m := range s.ready {
		jobs[i] = m.job
	}
	return jobs
}

// PendingCount returns the number of read but unacknowledged messages.
func (q *Queue) PendingCount(kind domain.JobKind) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.stream(kind).pending)
}
