package redisstream

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNames(t *testing.T) {
	assert.Equal(t, "drive_fetch:0", StreamKey(domain.JobKindFetch))
	assert.Equal(t, "drive_vectorize:0", StreamKey(domain.JobKindVectorize))
	assert.Equal(t, "drive-fetch-workers", GroupName(domain.JobKindFetch))
	assert.Equal(t, "drive-vectorize-workers", GroupName(domain.JobKindVectorize))
}

func TestQueue_EnqueueReadAck(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	q := NewQueue(client)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	require.NoError(t, q.Enqueue(ctx, domain.JobKindFetch, "u1", "f1"))

	d, err := q.Read(ctx, domain.JobKindFetch, "fetch-worker-1", 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NoError(t, d.DecodeErr)
	assert.Equal(t, domain.FetchJob{UserID: "u1", FileID: "f1", EnqueuedAt: fixed}, d.Job)
	assert.Equal(t, domain.JobKindFetch, d.Kind)

	require.NoError(t, q.Ack(ctx, d))

	pending, err := client.XPending(ctx, StreamKey(domain.JobKindFetch), GroupName(domain.JobKindFetch)).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestQueue_ReadTimeoutReturnsNil(t *testing.T) {
	_, client := setupRedis(t)
	q := NewQueue(client)

	d, err := q.Read(context.Background(), domain.JobKindVectorize, "c1", 20*time.Millisecond)

	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestQueue_GroupStartsFromBeginning(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	q := NewQueue(client)

	// Enqueued before any consumer created the group.
	require.NoError(t, q.Enqueue(ctx, domain.JobKindVectorize, "u1", "f1"))

	d, err := q.Read(ctx, domain.JobKindVectorize, "c1", 20*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, domain.VectorizeJob{UserID: "u1", FileID: "f1", EnqueuedAt: d.Job.(domain.VectorizeJob).EnqueuedAt}, d.Job)
}

func TestQueue_RecreatesDeletedGroup(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	q := NewQueue(client)

	_, err := q.Read(ctx, domain.JobKindFetch, "c1", 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, client.XGroupDestroy(ctx, StreamKey(domain.JobKindFetch), GroupName(domain.JobKindFetch)).Err())
	require.NoError(t, q.Enqueue(ctx, domain.JobKindFetch, "u1", "f1"))

	d, err := q.Read(ctx, domain.JobKindFetch, "c1", 10*time.Millisecond)

	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestQueue_ReclaimPending(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	q := NewQueue(client)
	require.NoError(t, q.Enqueue(ctx, domain.JobKindFetch, "u1", "f1"))

	first, err := q.Read(ctx, domain.JobKindFetch, "dead-worker", 10*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, first)

	claimed, err := q.Reclaim(ctx, domain.JobKindFetch, "live-worker", 0, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID)
	assert.Equal(t, first.Job, claimed[0].Job)

	require.NoError(t, q.Ack(ctx, &claimed[0]))
	again, err := q.Reclaim(ctx, domain.JobKindFetch, "live-worker", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestQueue_EnqueueValidates(t *testing.T) {
	_, client := setupRedis(t)
	q := NewQueue(client)

	assert.ErrorIs(t, q.Enqueue(context.Background(), domain.JobKindFetch, "", "f1"), domain.ErrInvalidJob)
	assert.ErrorIs(t, q.Enqueue(context.Background(), "index", "u1", "f1"), domain.ErrInvalidJob)
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
		wantJob domain.Job
	}{
		{
			name:    "complete",
			values:  map[string]any{"userId": "u1", "fileId": "f1", "enqueuedAt": "1740830400000"},
			wantJob: domain.FetchJob{UserID: "u1", FileID: "f1", EnqueuedAt: time.UnixMilli(1740830400000).UTC()},
		},
		{
			name:    "missing ids are left to validation",
			values:  map[string]any{"enqueuedAt": "1"},
			wantJob: domain.FetchJob{EnqueuedAt: time.UnixMilli(1).UTC()},
		},
		{
			name:    "bad timestamp",
			values:  map[string]any{"userId": "u1", "fileId": "f1", "enqueuedAt": "yesterday"},
			wantErr: true,
		},
		{
			name:    "non-string field",
			values:  map[string]any{"userId": 7, "fileId": "f1"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decodeMessage(domain.JobKindFetch, redis.XMessage{ID: "1-0", Values: tt.values})
			assert.Equal(t, "1-0", d.ID)
			if tt.wantErr {
				assert.ErrorIs(t, d.DecodeErr, domain.ErrInvalidJob)
				assert.Nil(t, d.Job)
				return
			}
			require.NoError(t, d.DecodeErr)
			assert.Equal(t, tt.wantJob, d.Job)
		})
	}
}

func TestDelayedStore(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	s := NewDelayedStore(client)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "a", DueAt: base.Add(4 * time.Second)}
	b := domain.DelayedJob{Kind: domain.JobKindVectorize, UserID: "u1", FileID: "b", DueAt: base.Add(2 * time.Second)}
	c := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "c", DueAt: base.Add(time.Hour)}
	for _, j := range []domain.DelayedJob{a, b, c} {
		require.NoError(t, s.Schedule(ctx, j))
	}
	require.NoError(t, client.ZAdd(ctx, DelayedKey, redis.Z{Score: 1, Member: "garbage"}).Err())

	due, err := s.Due(ctx, base.Add(5*time.Second), 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.DelayedJob{b, a}, due)

	// The malformed member was removed.
	n, err := client.ZCard(ctx, DelayedKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	limited, err := s.Due(ctx, base.Add(5*time.Second), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.DelayedJob{b}, limited)

	require.NoError(t, s.Remove(ctx, b))
	require.NoError(t, s.Remove(ctx, b))
	due, err = s.Due(ctx, base.Add(5*time.Second), 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.DelayedJob{a}, due)
}

func TestDelayedStore_RemoveKeepsRescheduledJob(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	s := NewDelayedStore(client)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	first := domain.DelayedJob{Kind: domain.JobKindFetch, UserID: "u1", FileID: "f1", DueAt: base}
	require.NoError(t, s.Schedule(ctx, first))
	retry := first
	retry.DueAt = base.Add(4 * time.Second)
	require.NoError(t, s.Schedule(ctx, retry))

	require.NoError(t, s.Remove(ctx, first))
	due, err := s.Due(ctx, base.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.DelayedJob{retry}, due)

	require.NoError(t, s.Remove(ctx, retry))
	due, err = s.Due(ctx, base.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Empty(t, due)
}
