package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func TestFetchStage_PlainText(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", Name: "notes.txt", MimeType: domain.MimeText, Error: "stale error"})
	p.source.content["f1"] = []byte("hello world")

	require.NoError(t, p.fetch.Process(ctx, domain.FetchJob{UserID: "u1", FileID: "f1"}))

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseChunkPending, f.Phase)
	assert.Equal(t, hashText("hello world"), f.Hash)
	assert.Equal(t, 0, f.RetryCount)
	assert.Empty(t, f.Error)

	raw, err := p.raws.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", raw.Text)
	assert.Equal(t, domain.MimeText, raw.MimeType)

	queued := p.queue.Queued(domain.JobKindVectorize)
	require.Len(t, queued, 1)
	userID, fileID := queued[0].Target()
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "f1", fileID)
}

func TestFetchStage_ExportsWorkspaceFiles(t *testing.T) {
	tests := []struct {
		mime   string
		target string
	}{
		{domain.MimeGoogleDoc, domain.MimeText},
		{domain.MimeGoogleSheet, domain.MimeCSV},
		{domain.MimeGoogleSlides, domain.MimeText},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			ctx := context.Background()
			p := newPipeline(t)
			p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "g1", Name: "doc", MimeType: tt.mime})
			p.source.exports["g1"] = []byte("a,b\n1,2")

			require.NoError(t, p.fetch.Process(ctx, domain.FetchJob{UserID: "u1", FileID: "g1"}))

			assert.Equal(t, []string{"g1|" + tt.target}, p.source.exported)
			raw, err := p.raws.Get(ctx, "u1", "g1")
			require.NoError(t, err)
			assert.Equal(t, tt.target, raw.MimeType)
			assert.Equal(t, domain.PhaseChunkPending, p.file(t, "u1", "g1").Phase)
		})
	}
}

func TestFetchStage_TruncatesLongText(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimeText})
	p.source.content["f1"] = []byte(strings.Repeat("é", domain.MaxTextChars+10))

	require.NoError(t, p.fetch.Process(ctx, domain.FetchJob{UserID: "u1", FileID: "f1"}))

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseChunkPending, f.Phase)
	assert.Equal(t, domain.TruncationWarning, f.Error)

	raw, err := p.raws.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTextChars, len([]rune(raw.Text)))
	assert.Equal(t, hashText(raw.Text), f.Hash)
}

func TestFetchStage_UntrackedFileIsSkipped(t *testing.T) {
	p := newPipeline(t)

	require.NoError(t, p.fetch.Process(context.Background(), domain.FetchJob{UserID: "u1", FileID: "gone"}))

	assert.Empty(t, p.queue.Queued(domain.JobKindVectorize))
	assert.Empty(t, p.delayed.All())
}

func TestFetchStage_PermanentErrorFails(t *testing.T) {
	p := newPipeline(t)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimePDF})

	require.NoError(t, p.fetch.Process(context.Background(), domain.FetchJob{UserID: "u1", FileID: "f1"}))

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseFailed, f.Phase)
	assert.Contains(t, f.Error, "404")
	assert.Equal(t, 0, f.RetryCount)
	assert.Empty(t, p.delayed.All())
}

func TestFetchStage_UnsupportedTypeFails(t *testing.T) {
	p := newPipeline(t)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: "image/png"})
	p.source.content["f1"] = []byte{0x89, 0x50}

	require.NoError(t, p.fetch.Process(context.Background(), domain.FetchJob{UserID: "u1", FileID: "f1"}))

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseFailed, f.Phase)
	assert.Contains(t, f.Error, "image/png")
	assert.Empty(t, p.delayed.All())
}

func TestFetchStage_MissingCredentialFails(t *testing.T) {
	p := newPipeline(t)
	p.factory.err = domain.NewPermanent(domain.ErrAuthRequired)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimeText})

	require.NoError(t, p.fetch.Process(context.Background(), domain.FetchJob{UserID: "u1", FileID: "f1"}))

	assert.Equal(t, domain.PhaseFailed, p.file(t, "u1", "f1").Phase)
}

func TestFetchStage_TransientRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.source.err = errors.New("connection reset by peer")
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimeText})
	job := domain.FetchJob{UserID: "u1", FileID: "f1"}

	// First failure: retry in 2s.
	require.NoError(t, p.fetch.Process(ctx, job))
	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseFetching, f.Phase)
	assert.Equal(t, 1, f.RetryCount)
	assert.Contains(t, f.Error, "connection reset")
	require.NotNil(t, f.LastRetryAt)
	delayed := p.delayed.All()
	require.Len(t, delayed, 1)
	assert.Equal(t, domain.JobKindFetch, delayed[0].Kind)
	assert.Equal(t, p.now.Add(2*time.Second), delayed[0].DueAt)
	require.NoError(t, p.delayed.Remove(ctx, delayed[0]))

	// Second failure: retry in 4s.
	require.NoError(t, p.fetch.Process(ctx, job))
	f = p.file(t, "u1", "f1")
	assert.Equal(t, 2, f.RetryCount)
	delayed = p.delayed.All()
	require.Len(t, delayed, 1)
	assert.Equal(t, p.now.Add(4*time.Second), delayed[0].DueAt)
	require.NoError(t, p.delayed.Remove(ctx, delayed[0]))

	// Third failure: budget spent.
	require.NoError(t, p.fetch.Process(ctx, job))
	f = p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseFailed, f.Phase)
	assert.Equal(t, 2, f.RetryCount)
	assert.Contains(t, f.Error, "connection reset")
	assert.Empty(t, p.delayed.All())
	assert.Empty(t, p.queue.Queued(domain.JobKindFetch))
}

func TestFetchStage_SuccessAfterRetryResetsCounter(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	p.source.err = errors.New("timeout")
	p.source.content["f1"] = []byte("body")
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimeText})

	require.NoError(t, p.fetch.Process(ctx, domain.FetchJob{UserID: "u1", FileID: "f1"}))
	assert.Equal(t, 1, p.file(t, "u1", "f1").RetryCount)

	p.source.err = nil
	require.NoError(t, p.fetch.Process(ctx, domain.FetchJob{UserID: "u1", FileID: "f1"}))

	f := p.file(t, "u1", "f1")
	assert.Equal(t, domain.PhaseChunkPending, f.Phase)
	assert.Equal(t, 0, f.RetryCount)
	assert.Empty(t, f.Error)
}

func TestFetchStage_ArchivesBytes(t *testing.T) {
	p := newPipeline(t)
	blobs := &fakeBlobs{err: errors.New("bucket offline")}
	p.fetch.SetBlobStore(blobs)
	p.addFile(t, domain.FileRecord{UserID: "u1", FileID: "f1", MimeType: domain.MimeText})
	p.source.content["f1"] = []byte("body")

	require.NoError(t, p.fetch.Process(context.Background(), domain.FetchJob{UserID: "u1", FileID: "f1"}))

	assert.Equal(t, []string{"u1/f1"}, blobs.keys)
	assert.Equal(t, domain.PhaseChunkPending, p.file(t, "u1", "f1").Phase)
}

func TestFetchStage_RejectsOtherJobKinds(t *testing.T) {
	p := newPipeline(t)
	err := p.fetch.Process(context.Background(), domain.VectorizeJob{UserID: "u1", FileID: "f1"})
	assert.ErrorIs(t, err, domain.ErrInvalidJob)
}
