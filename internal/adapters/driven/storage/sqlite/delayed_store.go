package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// delayedStore implements driven.DelayedJobStore. Deadlines are stored as
// unix milliseconds so they sort numerically.
type delayedStore struct {
	store *Store
}

var _ driven.DelayedJobStore = (*delayedStore)(nil)

// Schedule stores a job, replacing any job with the same key.
func (s *delayedStore) Schedule(ctx context.Context, job domain.DelayedJob) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO delayed_jobs (job_key, kind, user_id, file_id, due_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(job_key) DO UPDATE SET due_at = excluded.due_at
	`, job.Key(), string(job.Kind), job.UserID, job.FileID, job.DueAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("scheduling delayed job: %w", err)
	}
	return nil
}

// Due returns up to limit jobs due at or before now, earliest first.
func (s *delayedStore) Due(ctx context.Context, now time.Time, limit int) ([]domain.DelayedJob, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT kind, user_id, file_id, due_at
		FROM delayed_jobs
		WHERE due_at <= ?
		ORDER BY due_at, job_key
		LIMIT ?
	`, now.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("querying delayed jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DelayedJob
	for rows.Next() {
		var kind string
		var dueAt int64
		var job domain.DelayedJob
		if err := rows.Scan(&kind, &job.UserID, &job.FileID, &dueAt); err != nil {
			return nil, fmt.Errorf("scanning delayed job: %w", err)
		}
		job.Kind = domain.JobKind(kind)
		job.DueAt = time.UnixMilli(dueAt).UTC()
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delayed jobs: %w", err)
	}
	return jobs, nil
}

// Remove deletes a job unless it was rescheduled to another deadline.
func (s *delayedStore) Remove(ctx context.Context, job domain.DelayedJob) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM delayed_jobs WHERE job_key = ? AND due_at = ?", job.Key(), job.DueAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("removing delayed job: %w", err)
	}
	return nil
}
