package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure Worker implements the interface.
var _ driving.Runner = (*Worker)(nil)

// ConsumerName is the queue consumer name of a worker process.
func ConsumerName(kind domain.JobKind) string {
	return fmt.Sprintf("%s-worker-%d", kind, os.Getpid())
}

// Worker feeds one stage from the queue, one message at a time. Every
// delivery is acknowledged once handled, including malformed ones and
// failed jobs; retries go through the delayed job store instead.
type Worker struct {
	queue    driven.JobQueue
	stage    driving.Stage
	consumer string
	cfg      domain.WorkerSettings
	log      logger.Logger

	now         func() time.Time
	lastReclaim time.Time
}

// NewWorker creates a worker for stage.
func NewWorker(queue driven.JobQueue, stage driving.Stage, cfg domain.WorkerSettings) *Worker {
	return &Worker{
		queue:    queue,
		stage:    stage,
		consumer: ConsumerName(stage.Kind()),
		cfg:      cfg,
		log:      logger.With(stage.Kind().String()),
		now:      time.Now,
	}
}

// Consumer returns the consumer name the worker reads as.
func (w *Worker) Consumer() string {
	return w.consumer
}

// Run polls until ctx is cancelled. Queue errors are logged and followed by
// a cooldown; they never end the loop.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker %s started", w.consumer)
	defer w.log.Info("worker %s stopped", w.consumer)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := w.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.Error("queue error: %v; retrying in %s", err, w.cfg.Cooldown)
			if !sleepCtx(ctx, w.cfg.Cooldown) {
				return nil
			}
		}
	}
}

// Step runs the reclaim sweep when due, then reads and handles at most one
// new message.
func (w *Worker) Step(ctx context.Context) error {
	if err := w.reclaim(ctx); err != nil {
		w.log.Warn("reclaim failed: %v", err)
	}

	d, err := w.queue.Read(ctx, w.stage.Kind(), w.consumer, w.cfg.BlockTimeout)
	if err != nil {
		return err
	}
	if d == nil {
		return nil
	}
	w.handle(ctx, d)
	return nil
}

// reclaim takes over messages other consumers read but never acknowledged.
func (w *Worker) reclaim(ctx context.Context) error {
	if w.cfg.ReclaimInterval <= 0 {
		return nil
	}
	now := w.now()
	if !w.lastReclaim.IsZero() && now.Sub(w.lastReclaim) < w.cfg.ReclaimInterval {
		return nil
	}
	w.lastReclaim = now

	deliveries, err := w.queue.Reclaim(ctx, w.stage.Kind(), w.consumer, w.cfg.ReclaimMinIdle, w.cfg.ReclaimCount)
	if err != nil {
		return err
	}
	if len(deliveries) > 0 {
		w.log.Info("reclaimed %d stalled messages", len(deliveries))
	}
	for i := range deliveries {
		w.handle(ctx, &deliveries[i])
	}
	return nil
}

func (w *Worker) handle(ctx context.Context, d *domain.Delivery) {
	defer w.ack(ctx, d)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("message %s: panic: %v", d.ID, r)
		}
	}()

	if d.DecodeErr != nil {
		w.log.Warn("dropping malformed message %s: %v", d.ID, d.DecodeErr)
		return
	}
	if d.Job == nil {
		w.log.Warn("dropping empty message %s", d.ID)
		return
	}
	if err := d.Job.Validate(); err != nil {
		w.log.Warn("dropping message %s: %v", d.ID, err)
		return
	}

	userID, fileID := d.Job.Target()
	w.log.Debug("message %s: user=%s file=%s attempts=%d", d.ID, userID, fileID, d.Attempts)
	if err := w.stage.Process(ctx, d.Job); err != nil {
		w.log.Error("message %s (file %s): %v", d.ID, fileID, err)
	}
}

func (w *Worker) ack(ctx context.Context, d *domain.Delivery) {
	if err := w.queue.Ack(context.WithoutCancel(ctx), d); err != nil {
		w.log.Error("ack %s: %v", d.ID, err)
	}
}

// sleepCtx waits for d or ctx; it returns false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
