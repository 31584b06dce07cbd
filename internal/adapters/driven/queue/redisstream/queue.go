package redisstream

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// Message fields.
const (
	fieldUserID     = "userId"
	fieldFileID     = "fileId"
	fieldEnqueuedAt = "enqueuedAt"
)

// StreamKey returns the stream of a job kind, e.g. "drive_fetch:0".
func StreamKey(kind domain.JobKind) string {
	return "drive_" + string(kind) + ":0"
}

// GroupName returns the consumer group of a job kind, e.g.
// "drive-fetch-workers".
func GroupName(kind domain.JobKind) string {
	return "drive-" + string(kind) + "-workers"
}

// Queue is a driven.JobQueue on Redis streams.
type Queue struct {
	client redis.UniversalClient
	now    func() time.Time

	mu     sync.Mutex
	groups map[domain.JobKind]bool
}

// NewQueue creates a queue on client. Groups are created lazily.
func NewQueue(client redis.UniversalClient) *Queue {
	return &Queue{
		client: client,
		now:    time.Now,
		groups: make(map[domain.JobKind]bool),
	}
}

// Enqueue appends a job to the kind's stream.
func (q *Queue) Enqueue(ctx context.Context, kind domain.JobKind, userID, fileID string) error {
	job, err := domain.NewJob(kind, userID, fileID, q.now())
	if err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return err
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(kind),
		Values: map[string]any{
			fieldUserID:     userID,
			fieldFileID:     fileID,
			fieldEnqueuedAt: strconv.FormatInt(q.now().UnixMilli(), 10),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: xadd %s: %v", domain.ErrQueueUnavailable, StreamKey(kind), err)
	}
	return nil
}

// ensureGroup creates the consumer group from the start of the stream,
// creating the stream if needed. An existing group is not an error.
func (q *Queue) ensureGroup(ctx context.Context, kind domain.JobKind, force bool) error {
	q.mu.Lock()
	done := q.groups[kind]
	q.mu.Unlock()
	if done && !force {
		return nil
	}

	err := q.client.XGroupCreateMkStream(ctx, StreamKey(kind), GroupName(kind), "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: create group %s: %v", domain.ErrQueueUnavailable, GroupName(kind), err)
	}

	q.mu.Lock()
	q.groups[kind] = true
	q.mu.Unlock()
	return nil
}

// Read blocks up to block for one new message. A missing group is created
// and the read retried once.
func (q *Queue) Read(ctx context.Context, kind domain.JobKind, consumer string, block time.Duration) (*domain.Delivery, error) {
	if err := q.ensureGroup(ctx, kind, false); err != nil {
		return nil, err
	}

	streams, err := q.readGroup(ctx, kind, consumer, block)
	if err != nil && strings.Contains(err.Error(), "NOGROUP") {
		if err := q.ensureGroup(ctx, kind, true); err != nil {
			return nil, err
		}
		streams, err = q.readGroup(ctx, kind, consumer, block)
	}
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: xreadgroup %s: %v", domain.ErrQueueUnavailable, StreamKey(kind), err)
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			d := decodeMessage(kind, msg)
			return &d, nil
		}
	}
	return nil, nil
}

func (q *Queue) readGroup(ctx context.Context, kind domain.JobKind, consumer string, block time.Duration) ([]redis.XStream, error) {
	return q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupName(kind),
		Consumer: consumer,
		Streams:  []string{StreamKey(kind), ">"},
		Count:    1,
		Block:    block,
	}).Result()
}

// Ack acknowledges a delivery.
func (q *Queue) Ack(ctx context.Context, d *domain.Delivery) error {
	if err := q.client.XAck(ctx, StreamKey(d.Kind), GroupName(d.Kind), d.ID).Err(); err != nil {
		return fmt.Errorf("%w: xack %s: %v", domain.ErrQueueUnavailable, d.ID, err)
	}
	return nil
}

// Reclaim claims up to count messages idle for at least minIdle.
func (q *Queue) Reclaim(ctx context.Context, kind domain.JobKind, consumer string, minIdle time.Duration, count int) ([]domain.Delivery, error) {
	if err := q.ensureGroup(ctx, kind, false); err != nil {
		return nil, err
	}
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey(kind),
		Group:    GroupName(kind),
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: xautoclaim %s: %v", domain.ErrQueueUnavailable, StreamKey(kind), err)
	}

	deliveries := make([]domain.Delivery, 0, len(msgs))
	for _, msg := range msgs {
		deliveries = append(deliveries, decodeMessage(kind, msg))
	}
	return deliveries, nil
}

// Close closes the client.
func (q *Queue) Close() error {
	return q.client.Close()
}

// decodeMessage turns a stream entry into a delivery. Field values that are
// not strings, or a malformed timestamp, yield a DecodeErr; missing ids are
// left for job validation.
func decodeMessage(kind domain.JobKind, msg redis.XMessage) domain.Delivery {
	d := domain.Delivery{ID: msg.ID, Kind: kind}

	userID, ok1 := stringField(msg.Values, fieldUserID)
	fileID, ok2 := stringField(msg.Values, fieldFileID)
	raw, ok3 := stringField(msg.Values, fieldEnqueuedAt)
	if !ok1 || !ok2 || !ok3 {
		d.DecodeErr = fmt.Errorf("%w: message %s has non-string fields", domain.ErrInvalidJob, msg.ID)
		return d
	}

	var enqueuedAt time.Time
	if raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			d.DecodeErr = fmt.Errorf("%w: message %s: bad %s %q", domain.ErrInvalidJob, msg.ID, fieldEnqueuedAt, raw)
			return d
		}
		enqueuedAt = time.UnixMilli(ms).UTC()
	}

	job, err := domain.NewJob(kind, userID, fileID, enqueuedAt)
	if err != nil {
		d.DecodeErr = err
		return d
	}
	d.Job = job
	return d
}

// stringField returns values[key]; a missing key is "" and ok.
func stringField(values map[string]any, key string) (string, bool) {
	v, present := values[key]
	if !present {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}
