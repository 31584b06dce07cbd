package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure VectorizeStage implements the interface.
var _ driving.Stage = (*VectorizeStage)(nil)

// VectorizeStage chunks a raw document, embeds the chunks and indexes them.
// Reprocessing a file replaces its chunks and points.
type VectorizeStage struct {
	files    driven.FileStore
	raws     driven.RawDocumentStore
	chunks   driven.ChunkStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	splitter driven.TextSplitter
	failures *FailureHandler
	log      logger.Logger

	newID func() string
	now   func() time.Time
}

// NewVectorizeStage creates the vectorize stage.
func NewVectorizeStage(
	files driven.FileStore,
	raws driven.RawDocumentStore,
	chunks driven.ChunkStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	splitter driven.TextSplitter,
	failures *FailureHandler,
) *VectorizeStage {
	return &VectorizeStage{
		files:    files,
		raws:     raws,
		chunks:   chunks,
		index:    index,
		embedder: embedder,
		splitter: splitter,
		failures: failures,
		log:      logger.With("vectorize"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Kind returns domain.JobKindVectorize.
func (s *VectorizeStage) Kind() domain.JobKind {
	return domain.JobKindVectorize
}

// Process runs one vectorize job.
func (s *VectorizeStage) Process(ctx context.Context, job domain.Job) error {
	j, ok := job.(domain.VectorizeJob)
	if !ok {
		return fmt.Errorf("%w: vectorize stage cannot process %s jobs", domain.ErrInvalidJob, job.Kind())
	}

	file, err := loadFile(ctx, s.files, s.log, j.UserID, j.FileID)
	if err != nil || file == nil {
		return err
	}

	s.log.Info("vectorizing %s (%s)", file.Name, file.FileID)
	if err := advance(ctx, s.files, s.log, file, domain.PhaseVectorizing, driven.FileUpdate{}); err != nil {
		return s.failures.Handle(ctx, domain.JobKindVectorize, file, err)
	}

	if err := s.vectorize(ctx, file); err != nil {
		return s.failures.Handle(ctx, domain.JobKindVectorize, file, err)
	}
	return nil
}

func (s *VectorizeStage) vectorize(ctx context.Context, file *domain.FileRecord) error {
	raw, err := s.raws.Get(ctx, file.UserID, file.FileID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewInvariantViolation(fmt.Errorf("%w for file %s", domain.ErrRawDocumentMissing, file.FileID))
	}
	if err != nil {
		return fmt.Errorf("load raw document: %w", err)
	}

	if err := s.reset(ctx, file); err != nil {
		return err
	}

	texts := s.splitter.Split(raw.Text)
	if len(texts) == 0 {
		return domain.NewInvariantViolation(fmt.Errorf("%w: file %s produced no chunks", domain.ErrEmptyDocument, file.FileID))
	}
	s.log.Debug("file %s: %d chunks", file.FileID, len(texts))

	points := make([]domain.VectorPoint, 0, len(texts))
	chunks := make([]domain.Chunk, 0, len(texts))
	now := s.now().UTC()

	for start := 0; start < len(texts); start += domain.EmbedBatchSize {
		end := min(start+domain.EmbedBatchSize, len(texts))
		batch := texts[start:end]

		vectors, err := s.embedder.EmbedBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end-1, len(vectors), len(batch))
		}

		for i, text := range batch {
			id := s.newID()
			index := start + i
			hash := hashText(text)
			points = append(points, domain.VectorPoint{
				ID:     id,
				Vector: vectors[i],
				Payload: domain.VectorPayload{
					UserID:     file.UserID,
					FileID:     file.FileID,
					FileName:   file.Name,
					MimeType:   file.MimeType,
					ChunkIndex: index,
					Hash:       hash,
				},
			})
			chunks = append(chunks, domain.Chunk{
				ID:         id,
				UserID:     file.UserID,
				FileID:     file.FileID,
				ChunkIndex: index,
				Text:       text,
				Hash:       hash,
				PointID:    id,
				Vectorized: true,
				CreatedAt:  now,
			})
		}
	}

	for start := 0; start < len(points); start += domain.EmbedBatchSize {
		end := min(start+domain.EmbedBatchSize, len(points))
		if err := s.index.Upsert(ctx, points[start:end]); err != nil {
			return fmt.Errorf("upsert points: %w", err)
		}
	}
	if err := s.chunks.Insert(ctx, chunks); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	ingested := s.now().UTC()
	if err := advance(ctx, s.files, s.log, file, domain.PhaseIndexed, driven.FileUpdate{
		Hash:           ptr(raw.Hash),
		LastIngestedAt: &ingested,
		RetryCount:     ptr(0),
		Error:          ptr(""),
	}); err != nil {
		return err
	}
	s.log.Info("indexed %s: %d chunks", file.Name, len(chunks))
	return nil
}

// reset removes the chunks and points left by earlier runs.
func (s *VectorizeStage) reset(ctx context.Context, file *domain.FileRecord) error {
	existing, err := s.chunks.ListByFile(ctx, file.UserID, file.FileID)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	if len(existing) == 0 {
		return nil
	}

	ids := make([]string, 0, len(existing))
	for _, c := range existing {
		ids = append(ids, c.PointID)
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	if err := s.chunks.DeleteByFile(ctx, file.UserID, file.FileID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	s.log.Debug("file %s: removed %d previous chunks", file.FileID, len(existing))
	return nil
}
