package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// FailureHandler resolves a stage failure to a file state update and, for
// retryable errors with budget left, a delayed re-enqueue.
type FailureHandler struct {
	files   driven.FileStore
	delayed driven.DelayedJobStore
	now     func() time.Time
}

// NewFailureHandler creates a failure handler.
func NewFailureHandler(files driven.FileStore, delayed driven.DelayedJobStore) *FailureHandler {
	return &FailureHandler{files: files, delayed: delayed, now: time.Now}
}

// Handle records cause on file. Permanent errors, invariant violations and
// failures with the retry budget spent move the file to failed. Anything
// else bumps the retry counter and schedules kind again after
// domain.RetryBackoff. The phase is left untouched while retrying.
func (h *FailureHandler) Handle(ctx context.Context, kind domain.JobKind, file *domain.FileRecord, cause error) error {
	log := logger.With(kind.String())
	errKind := domain.Classify(cause)
	msg := domain.TruncateError(cause.Error())

	if !errKind.Retryable() || file.RetryCount >= domain.MaxRetries {
		log.Error("file %s failed (%s, retries=%d): %s", file.FileID, errKind, file.RetryCount, msg)
		phase := domain.PhaseFailed
		if err := h.files.Update(ctx, file.UserID, file.FileID, driven.FileUpdate{Phase: &phase, Error: &msg}); err != nil {
			return fmt.Errorf("mark %s failed: %w", file.FileID, err)
		}
		file.Phase = phase
		file.Error = msg
		return nil
	}

	now := h.now()
	retries := file.RetryCount + 1
	delay := domain.RetryBackoff(file.RetryCount)
	log.Warn("file %s: %s; retry %d/%d in %s", file.FileID, msg, retries, domain.MaxRetries, delay)

	if err := h.files.Update(ctx, file.UserID, file.FileID, driven.FileUpdate{
		RetryCount:  &retries,
		LastRetryAt: &now,
		Error:       &msg,
	}); err != nil {
		return fmt.Errorf("record retry for %s: %w", file.FileID, err)
	}
	file.RetryCount = retries
	file.LastRetryAt = &now
	file.Error = msg

	job := domain.DelayedJob{Kind: kind, UserID: file.UserID, FileID: file.FileID, DueAt: now.Add(delay)}
	if err := h.delayed.Schedule(ctx, job); err != nil {
		return fmt.Errorf("schedule retry for %s: %w", file.FileID, err)
	}
	return nil
}
