package rabbitmq

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func TestQueueName(t *testing.T) {
	assert.Equal(t, "drive_fetch", QueueName(domain.JobKindFetch))
	assert.Equal(t, "drive_vectorize", QueueName(domain.JobKindVectorize))
}

func TestDecodeDelivery(t *testing.T) {
	d := decodeDelivery(domain.JobKindVectorize, 7, []byte(`{"userId":"u1","fileId":"f1","enqueuedAt":1000}`), false)

	require.NoError(t, d.DecodeErr)
	assert.Equal(t, "7", d.ID)
	assert.Equal(t, int64(1), d.Attempts)
	assert.Equal(t, domain.VectorizeJob{UserID: "u1", FileID: "f1", EnqueuedAt: time.UnixMilli(1000).UTC()}, d.Job)
}

func TestDecodeDelivery_Redelivered(t *testing.T) {
	d := decodeDelivery(domain.JobKindFetch, 1, []byte(`{"userId":"u1","fileId":"f1"}`), true)

	require.NoError(t, d.DecodeErr)
	assert.Equal(t, int64(2), d.Attempts)
	assert.Equal(t, domain.FetchJob{UserID: "u1", FileID: "f1"}, d.Job)
}

func TestDecodeDelivery_Malformed(t *testing.T) {
	d := decodeDelivery(domain.JobKindFetch, 3, []byte(`not json`), false)

	assert.ErrorIs(t, d.DecodeErr, domain.ErrInvalidJob)
	assert.Nil(t, d.Job)
}

func TestQueue_AckRequiresTag(t *testing.T) {
	q := &Queue{}

	err := q.Ack(context.Background(), &domain.Delivery{ID: "1"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueue_Broker(t *testing.T) {
	url := os.Getenv("SERCHA_TEST_AMQP_URL")
	if url == "" {
		t.Skip("SERCHA_TEST_AMQP_URL not set")
	}
	ctx := context.Background()
	q, err := Dial(url)
	require.NoError(t, err)
	defer q.Close()

	require.NoError(t, q.Enqueue(ctx, domain.JobKindFetch, "u1", "f1"))

	d, err := q.Read(ctx, domain.JobKindFetch, "fetch-test", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, d)
	require.NoError(t, d.DecodeErr)
	userID, fileID := d.Job.Target()
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "f1", fileID)
	require.NoError(t, q.Ack(ctx, d))
}
