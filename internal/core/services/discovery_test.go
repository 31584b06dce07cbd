package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

func sizePtr(n int64) *int64 { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func newDiscovery(p *pipeline) *DiscoveryService {
	return NewDiscoveryService(p.files, p.factory, p.queue)
}

func queuedFileIDs(p *pipeline, kind domain.JobKind) []string {
	var ids []string
	for _, job := range p.queue.Queued(kind) {
		_, fileID := job.Target()
		ids = append(ids, fileID)
	}
	return ids
}

func TestSync_ClassifiesListing(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.source.files = []domain.SourceFile{
		{ID: "doc", Name: "Plan", MimeType: domain.MimeGoogleDoc},
		{ID: "pdf", Name: "a.pdf", MimeType: domain.MimePDF, Size: sizePtr(2048)},
		{ID: "img", Name: "cat.png", MimeType: "image/png", Size: sizePtr(100)},
		{ID: "big", Name: "huge.pdf", MimeType: domain.MimePDF, Size: sizePtr(domain.MaxSourceFileSize + 1)},
	}

	summary, err := newDiscovery(p).Sync(ctx, "u1", domain.SyncOptions{})

	require.NoError(t, err)
	assert.Equal(t, &domain.SyncSummary{TotalFound: 4, Supported: 2, Unsupported: 2, Enqueued: 2}, summary)
	assert.Equal(t, []string{"doc", "pdf"}, queuedFileIDs(p, domain.JobKindFetch))

	doc := p.file(t, "u1", "doc")
	assert.Equal(t, domain.PhaseDiscovered, doc.Phase)
	assert.True(t, doc.Supported)
	assert.Equal(t, "Plan", doc.Name)

	img := p.file(t, "u1", "img")
	assert.Equal(t, domain.PhaseFailed, img.Phase)
	assert.False(t, img.Supported)
	assert.Equal(t, "Unsupported MIME type: image/png", img.Error)

	big := p.file(t, "u1", "big")
	assert.Equal(t, domain.PhaseFailed, big.Phase)
	assert.False(t, big.Supported)
	assert.Equal(t, fmt.Sprintf("File exceeds 10MB limit (size: %d bytes)", domain.MaxSourceFileSize+1), big.Error)
}

func TestSync_ExistingFiles(t *testing.T) {
	ingested := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	before := ingested.Add(-time.Hour)
	after := ingested.Add(time.Hour)

	tests := []struct {
		name        string
		existing    domain.FileRecord
		modified    time.Time
		wantPhase   domain.Phase
		wantError   string
		wantRetries int
		wantQueued  bool
	}{
		{
			name:      "unchanged indexed file is left alone",
			existing:  domain.FileRecord{Phase: domain.PhaseIndexed, Supported: true, LastIngestedAt: &ingested},
			modified:  before,
			wantPhase: domain.PhaseIndexed,
		},
		{
			name:       "modified indexed file is rediscovered",
			existing:   domain.FileRecord{Phase: domain.PhaseIndexed, Supported: true, LastIngestedAt: &ingested, RetryCount: 1, Error: "old"},
			modified:   after,
			wantPhase:  domain.PhaseDiscovered,
			wantQueued: true,
		},
		{
			name:        "failed file keeps its error",
			existing:    domain.FileRecord{Phase: domain.PhaseFailed, Supported: true, Error: "boom", RetryCount: 2},
			modified:    after,
			wantPhase:   domain.PhaseFailed,
			wantError:   "boom",
			wantRetries: 2,
		},
		{
			name:       "previously unsupported file is rediscovered",
			existing:   domain.FileRecord{Phase: domain.PhaseFailed, Supported: false, Error: "Unsupported MIME type: x"},
			modified:   before,
			wantPhase:  domain.PhaseDiscovered,
			wantQueued: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := newPipeline(t)
			rec := tt.existing
			rec.UserID, rec.FileID, rec.MimeType = "u1", "f1", domain.MimeText
			require.NoError(t, p.files.Upsert(ctx, &rec))
			p.source.files = []domain.SourceFile{
				{ID: "f1", Name: "renamed.txt", MimeType: domain.MimeText, ModifiedTime: timePtr(tt.modified)},
			}

			summary, err := newDiscovery(p).Sync(ctx, "u1", domain.SyncOptions{})
			require.NoError(t, err)

			f := p.file(t, "u1", "f1")
			assert.Equal(t, tt.wantPhase, f.Phase)
			assert.Equal(t, tt.wantError, f.Error)
			assert.Equal(t, tt.wantRetries, f.RetryCount)
			assert.True(t, f.Supported)
			assert.Equal(t, "renamed.txt", f.Name)
			if tt.wantQueued {
				assert.Equal(t, 1, summary.Enqueued)
				assert.Equal(t, []string{"f1"}, queuedFileIDs(p, domain.JobKindFetch))
			} else {
				assert.Zero(t, summary.Enqueued)
				assert.Empty(t, queuedFileIDs(p, domain.JobKindFetch))
			}
		})
	}
}

func TestSync_Limit(t *testing.T) {
	p := newPipeline(t)
	for i := range 5 {
		p.source.files = append(p.source.files, domain.SourceFile{ID: fmt.Sprintf("f%d", i), MimeType: domain.MimeText})
	}

	summary, err := newDiscovery(p).Sync(context.Background(), "u1", domain.SyncOptions{Limit: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalFound)
	assert.Equal(t, []string{"f0", "f1", "f2"}, queuedFileIDs(p, domain.JobKindFetch))
}

func TestSync_RateLimitedPerUser(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	svc := newDiscovery(p)

	_, err := svc.Sync(ctx, "u1", domain.SyncOptions{})
	require.NoError(t, err)

	_, err = svc.Sync(ctx, "u1", domain.SyncOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	_, err = svc.Sync(ctx, "u2", domain.SyncOptions{})
	assert.NoError(t, err)
}

func TestSync_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing user", func(t *testing.T) {
		_, err := newDiscovery(newPipeline(t)).Sync(ctx, "", domain.SyncOptions{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no credential", func(t *testing.T) {
		p := newPipeline(t)
		p.factory.err = domain.NewPermanent(domain.ErrAuthRequired)
		_, err := newDiscovery(p).Sync(ctx, "u1", domain.SyncOptions{})
		assert.ErrorIs(t, err, domain.ErrAuthRequired)
	})

	t.Run("listing fails", func(t *testing.T) {
		p := newPipeline(t)
		listErr := errors.New("drive unavailable")
		p.source.listErr = listErr
		_, err := newDiscovery(p).Sync(ctx, "u1", domain.SyncOptions{})
		assert.ErrorIs(t, err, listErr)
	})
}

// interleavedFiles runs a concurrent writer right after the first Get,
// standing in for a worker that commits while discovery is mid-file.
type interleavedFiles struct {
	driven.FileStore
	after func()
	done  bool
}

func (s *interleavedFiles) Get(ctx context.Context, userID, fileID string) (*domain.FileRecord, error) {
	f, err := s.FileStore.Get(ctx, userID, fileID)
	if !s.done {
		s.done = true
		s.after()
	}
	return f, err
}

func TestSync_KeepsConcurrentWorkerProgress(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", Name: "a.txt", MimeType: domain.MimeText, Phase: domain.PhaseVectorizing})
	p.source.files = []domain.SourceFile{
		{ID: "f1", Name: "b.txt", MimeType: domain.MimeText, ModifiedTime: timePtr(p.now.Add(-time.Hour))},
	}

	indexed := domain.PhaseIndexed
	files := &interleavedFiles{FileStore: p.files, after: func() {
		require.NoError(t, p.files.Update(ctx, "u1", "f1", driven.FileUpdate{Phase: &indexed, LastIngestedAt: &p.now}))
	}}
	summary, err := NewDiscoveryService(files, p.factory, p.queue).Sync(ctx, "u1", domain.SyncOptions{})
	require.NoError(t, err)

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseIndexed, f.Phase)
	require.NotNil(t, f.LastIngestedAt)
	assert.True(t, p.now.Equal(*f.LastIngestedAt))
	assert.Equal(t, "b.txt", f.Name)
	assert.Zero(t, summary.Enqueued)
}

func TestSync_StaleResetYieldsToConcurrentTransition(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ingested := p.now.Add(-2 * time.Hour)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", Name: "a.txt", MimeType: domain.MimeText,
		Phase: domain.PhaseIndexed, LastIngestedAt: &ingested})
	p.source.files = []domain.SourceFile{
		{ID: "f1", Name: "b.txt", MimeType: domain.MimeText, ModifiedTime: timePtr(p.now.Add(-time.Hour))},
	}

	fetching := domain.PhaseFetching
	files := &interleavedFiles{FileStore: p.files, after: func() {
		require.NoError(t, p.files.Update(ctx, "u1", "f1", driven.FileUpdate{Phase: &fetching}))
	}}
	summary, err := NewDiscoveryService(files, p.factory, p.queue).Sync(ctx, "u1", domain.SyncOptions{})
	require.NoError(t, err)

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseFetching, f.Phase)
	assert.Equal(t, "b.txt", f.Name)
	assert.Zero(t, summary.Enqueued)
	assert.Empty(t, queuedFileIDs(p, domain.JobKindFetch))
}
