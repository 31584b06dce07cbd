package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService answers status queries and handles manual retries.
type IngestionService struct {
	files driven.FileStore
	raws  driven.RawDocumentStore
	queue driven.JobQueue
	log   logger.Logger
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(files driven.FileStore, raws driven.RawDocumentStore, queue driven.JobQueue) *IngestionService {
	return &IngestionService{files: files, raws: raws, queue: queue, log: logger.With("ingest")}
}

// ListFiles returns every file record of the user.
func (s *IngestionService) ListFiles(ctx context.Context, userID string) ([]domain.FileRecord, error) {
	files, err := s.files.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []domain.FileRecord{}
	}
	return files, nil
}

// Progress returns totals plus the file list.
func (s *IngestionService) Progress(ctx context.Context, userID string) (*domain.Progress, error) {
	files, err := s.ListFiles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.Progress{Totals: domain.ComputeTotals(files), Files: files}, nil
}

// RetryFile resumes a failed file. With its raw document stored, only the
// vectorize stage runs again; otherwise the file is fetched again.
func (s *IngestionService) RetryFile(ctx context.Context, userID, fileID string) (domain.RetryStage, error) {
	file, err := s.files.Get(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	if file.Phase != domain.PhaseFailed {
		return "", fmt.Errorf("%w: file %s is %s, only failed files can be retried", domain.ErrInvalidInput, fileID, file.Phase)
	}
	if !file.Supported {
		return "", fmt.Errorf("%w: file %s is not supported", domain.ErrInvalidInput, fileID)
	}

	hasRaw, err := s.raws.Exists(ctx, userID, fileID)
	if err != nil {
		return "", fmt.Errorf("check raw document: %w", err)
	}

	stage, phase, kind := domain.RetryStageFetch, domain.PhaseDiscovered, domain.JobKindFetch
	if hasRaw {
		stage, phase, kind = domain.RetryStageVectorize, domain.PhaseChunkPending, domain.JobKindVectorize
	}

	if err := s.files.Update(ctx, userID, fileID, driven.FileUpdate{
		Phase:      &phase,
		RetryCount: ptr(0),
		Error:      ptr(""),
	}); err != nil {
		return "", fmt.Errorf("reset file %s: %w", fileID, err)
	}
	if err := s.queue.Enqueue(ctx, kind, userID, fileID); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", kind, err)
	}

	s.log.Info("file %s retried at %s", fileID, stage)
	return stage, nil
}

// EnqueueFetch appends a fetch job.
func (s *IngestionService) EnqueueFetch(ctx context.Context, userID, fileID string) error {
	return s.queue.Enqueue(ctx, domain.JobKindFetch, userID, fileID)
}

// EnqueueVectorize appends a vectorize job.
func (s *IngestionService) EnqueueVectorize(ctx context.Context, userID, fileID string) error {
	return s.queue.Enqueue(ctx, domain.JobKindVectorize, userID, fileID)
}
