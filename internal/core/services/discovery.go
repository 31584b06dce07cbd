package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure DiscoveryService implements the interface.
var _ driving.DiscoveryService = (*DiscoveryService)(nil)

// SyncInterval is the minimum time between two syncs of one user.
const SyncInterval = time.Minute

// DiscoveryService reconciles a user's source listing with the file
// records and enqueues fetch jobs for new and changed files.
type DiscoveryService struct {
	files   driven.FileStore
	sources driven.FileSourceFactory
	queue   driven.JobQueue
	log     logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

// NewDiscoveryService creates a discovery service.
func NewDiscoveryService(files driven.FileStore, sources driven.FileSourceFactory, queue driven.JobQueue) *DiscoveryService {
	return &DiscoveryService{
		files:    files,
		sources:  sources,
		queue:    queue,
		log:      logger.With("sync"),
		limiters: make(map[string]*rate.Limiter),
		interval: SyncInterval,
	}
}

func (s *DiscoveryService) allow(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.interval), 1)
		s.limiters[userID] = l
	}
	return l.Allow()
}

// Sync lists the user's files and updates their records. Unsupported
// files are recorded as failed and never enqueued.
func (s *DiscoveryService) Sync(ctx context.Context, userID string, opts domain.SyncOptions) (*domain.SyncSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if !s.allow(userID) {
		return nil, fmt.Errorf("%w: sync allowed once per %s", domain.ErrRateLimited, s.interval)
	}

	src, err := s.sources.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	listed, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if opts.Limit > 0 && len(listed) > opts.Limit {
		listed = listed[:opts.Limit]
	}

	summary := &domain.SyncSummary{TotalFound: len(listed)}
	for _, f := range listed {
		enqueued, err := s.reconcile(ctx, userID, f, summary)
		if err != nil {
			return nil, err
		}
		if enqueued {
			summary.Enqueued++
		}
	}

	s.log.Info("user %s: %d found, %d supported, %d unsupported, %d enqueued",
		userID, summary.TotalFound, summary.Supported, summary.Unsupported, summary.Enqueued)
	return summary, nil
}

// reconcile records one listed file and reports whether a fetch job was
// enqueued. Known files are written through narrow updates so a worker
// advancing the same file concurrently is never overwritten.
func (s *DiscoveryService) reconcile(ctx context.Context, userID string, f domain.SourceFile, summary *domain.SyncSummary) (bool, error) {
	existing, err := s.files.Get(ctx, userID, f.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("load file %s: %w", f.ID, err)
	}

	reason := domain.UnsupportedReason(f)
	if reason != "" {
		summary.Unsupported++
		s.log.Debug("file %s unsupported: %s", f.ID, reason)
	} else {
		summary.Supported++
	}

	if existing == nil {
		rec := domain.FileRecord{
			UserID:         userID,
			FileID:         f.ID,
			Name:           f.Name,
			MimeType:       f.MimeType,
			LastModifiedAt: f.ModifiedTime,
			Supported:      reason == "",
			Phase:          domain.PhaseDiscovered,
		}
		if reason != "" {
			rec.Phase = domain.PhaseFailed
			rec.Error = reason
		}
		if err := s.files.Upsert(ctx, &rec); err != nil {
			return false, fmt.Errorf("store file %s: %w", f.ID, err)
		}
		if reason != "" {
			return false, nil
		}
		return s.enqueue(ctx, userID, f.ID)
	}

	update := sourceMetadata(f)
	if reason != "" {
		supported, failed := false, domain.PhaseFailed
		update.Supported = &supported
		update.Phase = &failed
		update.Error = &reason
		return false, s.update(ctx, userID, f.ID, update)
	}

	if existing.Supported && !existing.IsStale(f.ModifiedTime) {
		return false, s.update(ctx, userID, f.ID, update)
	}

	if !existing.Phase.CanTransition(domain.PhaseDiscovered) {
		s.log.Warn("file %s: unexpected transition %s -> %s", f.ID, existing.Phase, domain.PhaseDiscovered)
	}
	supported, discovered, cleared, zero := true, domain.PhaseDiscovered, "", 0
	update.Supported = &supported
	update.Phase = &discovered
	update.Error = &cleared
	update.RetryCount = &zero
	update.IfPhase = &existing.Phase

	err = s.files.Update(ctx, userID, f.ID, update)
	if errors.Is(err, domain.ErrConflict) {
		// A worker moved the file on since it was read; the next sync
		// re-evaluates it against the fresh record.
		s.log.Debug("file %s changed during sync, not resetting: %v", f.ID, err)
		return false, s.update(ctx, userID, f.ID, sourceMetadata(f))
	}
	if err != nil {
		return false, fmt.Errorf("reset file %s: %w", f.ID, err)
	}
	return s.enqueue(ctx, userID, f.ID)
}

// sourceMetadata is the part of a record that mirrors the source listing.
func sourceMetadata(f domain.SourceFile) driven.FileUpdate {
	name, mime := f.Name, f.MimeType
	return driven.FileUpdate{Name: &name, MimeType: &mime, LastModifiedAt: f.ModifiedTime}
}

func (s *DiscoveryService) update(ctx context.Context, userID, fileID string, update driven.FileUpdate) error {
	if err := s.files.Update(ctx, userID, fileID, update); err != nil {
		return fmt.Errorf("store file %s: %w", fileID, err)
	}
	return nil
}

func (s *DiscoveryService) enqueue(ctx context.Context, userID, fileID string) (bool, error) {
	if err := s.queue.Enqueue(ctx, domain.JobKindFetch, userID, fileID); err != nil {
		return false, fmt.Errorf("enqueue fetch for %s: %w", fileID, err)
	}
	return true, nil
}
