package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// JobQueue is a durable, ordered log per job kind consumed by one consumer
// group per kind. Delivery is at-least-once: a message read but never
// acknowledged stays pending for the group until Reclaim hands it to a
// consumer again.
type JobQueue interface {
	// Enqueue appends a job for (userID, fileID) stamped with the current time.
	Enqueue(ctx context.Context, kind domain.JobKind, userID, fileID string) error

	// Read blocks up to block for the next new message of kind.
	// Returns nil, nil when nothing arrived in time.
	Read(ctx context.Context, kind domain.JobKind, consumer string, block time.Duration) (*domain.Delivery, error)

	// Ack removes a delivery from the group's pending list.
	Ack(ctx context.Context, delivery *domain.Delivery) error

	// Reclaim transfers up to count messages pending longer than minIdle
	// to consumer and returns them.
	Reclaim(ctx context.Context, kind domain.JobKind, consumer string, minIdle time.Duration, count int) ([]domain.Delivery, error)

	// Close releases connections.
	Close() error
}

// DelayedJobStore holds retry deadlines durably so scheduled retries
// survive restarts.
type DelayedJobStore interface {
	// Schedule stores job; an existing job with the same key is replaced.
	Schedule(ctx context.Context, job domain.DelayedJob) error

	// Due returns up to limit jobs whose deadline is at or before now,
	// earliest first.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.DelayedJob, error)

	// Remove deletes the job stored under job.Key() only while its
	// deadline still equals job.DueAt, so a retry rescheduled after Due
	// returned survives. Removing a missing job is not an error.
	Remove(ctx context.Context, job domain.DelayedJob) error
}
