package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "sercha-drive-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
	assert.Equal(t, "drive.db", filepath.Base(store.Path()))
}

func TestNewStore_ReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.FileStore().Upsert(context.Background(), &domain.FileRecord{UserID: "u1", FileID: "f1"}))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	_, err = second.FileStore().Get(context.Background(), "u1", "f1")
	assert.NoError(t, err)
}

// ==================== FileStore Tests ====================

func TestFileStore_UpsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	files := store.FileStore()
	modified := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	err := files.Upsert(ctx, &domain.FileRecord{
		UserID:         "u1",
		FileID:         "f1",
		Name:           "plan.pdf",
		MimeType:       domain.MimePDF,
		Supported:      true,
		Phase:          domain.PhaseDiscovered,
		LastModifiedAt: &modified,
	})
	require.NoError(t, err)

	got, err := files.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "plan.pdf", got.Name)
	assert.Equal(t, domain.MimePDF, got.MimeType)
	assert.True(t, got.Supported)
	assert.Equal(t, domain.PhaseDiscovered, got.Phase)
	require.NotNil(t, got.LastModifiedAt)
	assert.True(t, modified.Equal(*got.LastModifiedAt))
	assert.Nil(t, got.LastIngestedAt)
	assert.Empty(t, got.Error)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = files.Get(ctx, "u2", "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStore_UpsertPreservesCreatedAt(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	files := store.FileStore()

	require.NoError(t, files.Upsert(ctx, &domain.FileRecord{UserID: "u1", FileID: "f1", Name: "a", Phase: domain.PhaseDiscovered}))
	first, err := files.Get(ctx, "u1", "f1")
	require.NoError(t, err)

	require.NoError(t, files.Upsert(ctx, &domain.FileRecord{UserID: "u1", FileID: "f1", Name: "b", Phase: domain.PhaseFailed, Error: "x"}))
	second, err := files.Get(ctx, "u1", "f1")
	require.NoError(t, err)

	assert.Equal(t, "b", second.Name)
	assert.Equal(t, domain.PhaseFailed, second.Phase)
	assert.Equal(t, "x", second.Error)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}

func TestFileStore_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	files := store.FileStore()
	require.NoError(t, files.Upsert(ctx, &domain.FileRecord{
		UserID: "u1", FileID: "f1", Name: "a", Supported: true, Phase: domain.PhaseVectorizing, Error: "old", RetryCount: 1,
	}))

	phase := domain.PhaseIndexed
	hash := "abc"
	empty := ""
	zero := 0
	ingested := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, files.Update(ctx, "u1", "f1", driven.FileUpdate{
		Phase: &phase, Hash: &hash, Error: &empty, RetryCount: &zero, LastIngestedAt: &ingested,
	}))

	got, err := files.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseIndexed, got.Phase)
	assert.Equal(t, "abc", got.Hash)
	assert.Empty(t, got.Error)
	assert.Zero(t, got.RetryCount)
	require.NotNil(t, got.LastIngestedAt)
	assert.True(t, ingested.Equal(*got.LastIngestedAt))
	assert.Equal(t, "a", got.Name)

	err = files.Update(ctx, "u1", "missing", driven.FileUpdate{Phase: &phase})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFileStore_UpdateSourceMetadataAndIfPhase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	files := store.FileStore()
	require.NoError(t, files.Upsert(ctx, &domain.FileRecord{
		UserID: "u1", FileID: "f1", Name: "a", MimeType: domain.MimeText, Supported: false, Phase: domain.PhaseFailed,
	}))

	name, mime, supported := "b.pdf", domain.MimePDF, true
	modified := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	discovered, indexed, failed := domain.PhaseDiscovered, domain.PhaseIndexed, domain.PhaseFailed

	err := files.Update(ctx, "u1", "f1", driven.FileUpdate{Phase: &discovered, IfPhase: &indexed})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, files.Update(ctx, "u1", "f1", driven.FileUpdate{
		Name: &name, MimeType: &mime, Supported: &supported, LastModifiedAt: &modified,
		Phase: &discovered, IfPhase: &failed,
	}))

	got, err := files.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "b.pdf", got.Name)
	assert.Equal(t, domain.MimePDF, got.MimeType)
	assert.True(t, got.Supported)
	assert.Equal(t, domain.PhaseDiscovered, got.Phase)
	require.NotNil(t, got.LastModifiedAt)
	assert.True(t, modified.Equal(*got.LastModifiedAt))
}

func TestFileStore_ListOrderedByName(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	files := store.FileStore()
	for _, f := range []domain.FileRecord{
		{UserID: "u1", FileID: "1", Name: "zeta"},
		{UserID: "u1", FileID: "2", Name: "alpha"},
		{UserID: "u2", FileID: "3", Name: "beta"},
	} {
		require.NoError(t, files.Upsert(ctx, &f))
	}

	list, err := files.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)

	none, err := files.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ==================== RawDocumentStore Tests ====================

func TestRawDocumentStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	raws := store.RawDocumentStore()

	exists, err := raws.Exists(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = raws.Get(ctx, "u1", "f1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, raws.Upsert(ctx, &domain.RawDocument{UserID: "u1", FileID: "f1", MimeType: domain.MimeText, Text: "v1", Hash: "h1"}))
	require.NoError(t, raws.Upsert(ctx, &domain.RawDocument{UserID: "u1", FileID: "f1", MimeType: domain.MimeText, Text: "v2", Hash: "h2"}))

	doc, err := raws.Get(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.Text)
	assert.Equal(t, "h2", doc.Hash)

	exists, err = raws.Exists(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.True(t, exists)
}

// ==================== ChunkStore Tests ====================

func TestChunkStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	chunks := store.ChunkStore()

	require.NoError(t, chunks.Insert(ctx, []domain.Chunk{
		{ID: "c2", UserID: "u1", FileID: "f1", ChunkIndex: 1, Text: "second", PointID: "c2", Vectorized: true},
		{ID: "c1", UserID: "u1", FileID: "f1", ChunkIndex: 0, Text: "first", PointID: "c1", Vectorized: true},
		{ID: "c3", UserID: "u1", FileID: "f2", ChunkIndex: 0, Text: "other"},
	}))

	list, err := chunks.ListByFile(ctx, "u1", "f1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)
	assert.True(t, list[0].Vectorized)

	got, err := chunks.Get(ctx, "c3")
	require.NoError(t, err)
	assert.Equal(t, "other", got.Text)
	assert.Empty(t, got.PointID)

	many, err := chunks.GetMany(ctx, []string{"c1", "missing", "c3"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	err = chunks.Insert(ctx, []domain.Chunk{{ID: "c1", UserID: "u1", FileID: "f1", Text: "dup"}})
	assert.Error(t, err)

	require.NoError(t, chunks.DeleteByFile(ctx, "u1", "f1"))
	list, err = chunks.ListByFile(ctx, "u1", "f1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = chunks.Get(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== CredentialStore Tests ====================

func TestCredentialStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	creds := store.CredentialStore()

	_, err := creds.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, creds.Save(ctx, &domain.UserCredential{UserID: "u1", RefreshToken: "r1"}))
	require.NoError(t, creds.Save(ctx, &domain.UserCredential{UserID: "u1", RefreshToken: "r2", AccountEmail: "a@b.c"}))

	got, err := creds.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "r2", got.RefreshToken)
	assert.Equal(t, "a@b.c", got.AccountEmail)
	assert.False(t, got.UpdatedAt.IsZero())
}

// ==================== DelayedJobStore Tests ====================

func TestDelayedJobStore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	delayed := store.DelayedJobStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	later := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "a", DueAt: base.Add(4 * time.Second)}
	sooner := domain.DelayedJob{Kind: domain.JobKindVectorize, UserID: "u1", FileID: "b", DueAt: base.Add(2 * time.Second)}
	future := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "c", DueAt: base.Add(time.Hour)}
	for _, j := range []domain.DelayedJob{later, sooner, future} {
		require.NoError(t, delayed.Schedule(ctx, j))
	}

	due, err := delayed.Due(ctx, base.Add(5*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "b", due[0].FileID)
	assert.Equal(t, domain.JobKindVectorize, due[0].Kind)
	assert.True(t, sooner.DueAt.Equal(due[0].DueAt))
	assert.Equal(t, "a", due[1].FileID)

	limited, err := delayed.Due(ctx, base.Add(5*time.Second), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// Rescheduling the same key replaces the deadline.
	later.DueAt = base.Add(2 * time.Hour)
	require.NoError(t, delayed.Schedule(ctx, later))
	require.NoError(t, delayed.Remove(ctx, sooner))
	require.NoError(t, delayed.Remove(ctx, sooner))

	due, err = delayed.Due(ctx, base.Add(5*time.Second), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDelayedJobStore_RemoveKeepsRescheduledJob(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	delayed := store.DelayedJobStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "f1", DueAt: base}
	require.NoError(t, delayed.Schedule(ctx, first))
	retry := first
	retry.DueAt = base.Add(4 * time.Second)
	require.NoError(t, delayed.Schedule(ctx, retry))

	require.NoError(t, delayed.Remove(ctx, first))
	due, err := delayed.Due(ctx, base.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, retry.DueAt.Equal(due[0].DueAt))

	require.NoError(t, delayed.Remove(ctx, due[0]))
	due, err = delayed.Due(ctx, base.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
