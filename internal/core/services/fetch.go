package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-drive/internal/logger"
)

// Ensure FetchStage implements the interface.
var _ driving.Stage = (*FetchStage)(nil)

// FetchStage downloads a file, extracts its text and hands it to the
// vectorize stage.
type FetchStage struct {
	files       driven.FileStore
	raws        driven.RawDocumentStore
	sources     driven.FileSourceFactory
	normalisers driven.NormaliserRegistry
	queue       driven.JobQueue
	failures    *FailureHandler
	blobs       driven.BlobStore
	log         logger.Logger
}

// NewFetchStage creates the fetch stage.
func NewFetchStage(
	files driven.FileStore,
	raws driven.RawDocumentStore,
	sources driven.FileSourceFactory,
	normalisers driven.NormaliserRegistry,
	queue driven.JobQueue,
	failures *FailureHandler,
) *FetchStage {
	return &FetchStage{
		files:       files,
		raws:        raws,
		sources:     sources,
		normalisers: normalisers,
		queue:       queue,
		failures:    failures,
		log:         logger.With("fetch"),
	}
}

// SetBlobStore enables archiving of fetched bytes.
func (s *FetchStage) SetBlobStore(blobs driven.BlobStore) {
	s.blobs = blobs
}

// Kind returns domain.JobKindFetch.
func (s *FetchStage) Kind() domain.JobKind {
	return domain.JobKindFetch
}

// Process runs one fetch job.
func (s *FetchStage) Process(ctx context.Context, job domain.Job) error {
	j, ok := job.(domain.FetchJob)
	if !ok {
		return fmt.Errorf("%w: fetch stage cannot process %s jobs", domain.ErrInvalidJob, job.Kind())
	}

	file, err := loadFile(ctx, s.files, s.log, j.UserID, j.FileID)
	if err != nil || file == nil {
		return err
	}

	s.log.Info("fetching %s (%s)", file.Name, file.FileID)
	if err := advance(ctx, s.files, s.log, file, domain.PhaseFetching, driven.FileUpdate{Error: ptr("")}); err != nil {
		return s.failures.Handle(ctx, domain.JobKindFetch, file, err)
	}

	if err := s.fetch(ctx, file); err != nil {
		return s.failures.Handle(ctx, domain.JobKindFetch, file, err)
	}
	return nil
}

func (s *FetchStage) fetch(ctx context.Context, file *domain.FileRecord) error {
	src, err := s.sources.ForUser(ctx, file.UserID)
	if err != nil {
		return err
	}

	mimeType := file.MimeType
	var data []byte
	if target, ok := domain.ExportMIME(mimeType); ok {
		data, err = src.Export(ctx, file.FileID, target)
		mimeType = target
	} else {
		data, err = src.Download(ctx, file.FileID)
	}
	if err != nil {
		return err
	}
	s.log.Debug("downloaded %d bytes of %s as %s", len(data), file.FileID, mimeType)

	s.archive(ctx, file, mimeType, data)

	result, err := s.normalisers.Normalise(ctx, &domain.SourceContent{
		FileID:   file.FileID,
		Name:     file.Name,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		s.log.Warn("file %s: %s", file.FileID, w)
	}

	text, truncated := domain.TruncateText(result.Text)
	warning := ""
	if truncated {
		warning = domain.TruncationWarning
		s.log.Warn("file %s: text truncated to %d characters", file.FileID, domain.MaxTextChars)
	}

	hash := hashText(text)
	if err := s.raws.Upsert(ctx, &domain.RawDocument{
		UserID:   file.UserID,
		FileID:   file.FileID,
		MimeType: mimeType,
		Text:     text,
		Hash:     hash,
	}); err != nil {
		return fmt.Errorf("store raw document: %w", err)
	}

	if err := advance(ctx, s.files, s.log, file, domain.PhaseChunkPending, driven.FileUpdate{
		Hash:       &hash,
		RetryCount: ptr(0),
		Error:      &warning,
	}); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, domain.JobKindVectorize, file.UserID, file.FileID); err != nil {
		return fmt.Errorf("enqueue vectorize: %w", err)
	}
	s.log.Info("extracted %d characters from %s", len([]rune(text)), file.Name)
	return nil
}

// archive stores the fetched bytes when a blob store is configured.
// Archive failures never fail the fetch.
func (s *FetchStage) archive(ctx context.Context, file *domain.FileRecord, mimeType string, data []byte) {
	if s.blobs == nil {
		return
	}
	key := strings.Join([]string{file.UserID, file.FileID}, "/")
	if err := s.blobs.Put(ctx, key, data, mimeType); err != nil {
		s.log.Warn("archive %s: %v", file.FileID, err)
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
