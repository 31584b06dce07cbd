// Package rabbitmq implements the work queue on durable RabbitMQ queues,
// one per job kind. Unacknowledged deliveries are requeued by the broker
// when their channel closes, so Reclaim has nothing to do.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// Ensure Queue implements the interface.
var _ driven.JobQueue = (*Queue)(nil)

// QueueName returns the queue of a job kind, e.g. "drive_fetch".
func QueueName(kind domain.JobKind) string {
	return "drive_" + string(kind)
}

// message is the JSON body of a job.
type message struct {
	UserID     string `json:"userId"`
	FileID     string `json:"fileId"`
	EnqueuedAt int64  `json:"enqueuedAt"`
}

// Queue is a driven.JobQueue on RabbitMQ.
type Queue struct {
	conn *amqp.Connection
	now  func() time.Time

	mu        sync.Mutex
	publish   *amqp.Channel
	consumers map[string]<-chan amqp.Delivery
	channels  []*amqp.Channel
}

// Dial connects to url.
func Dial(url string) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}
	return NewQueue(conn), nil
}

// NewQueue creates a queue on conn.
func NewQueue(conn *amqp.Connection) *Queue {
	return &Queue{
		conn:      conn,
		now:       time.Now,
		consumers: make(map[string]<-chan amqp.Delivery),
	}
}

func declare(ch *amqp.Channel, kind domain.JobKind) error {
	_, err := ch.QueueDeclare(
		QueueName(kind),
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", QueueName(kind), err)
	}
	return nil
}

// Enqueue publishes a persistent job message.
func (q *Queue) Enqueue(ctx context.Context, kind domain.JobKind, userID, fileID string) error {
	job, err := domain.NewJob(kind, userID, fileID, q.now())
	if err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(message{UserID: userID, FileID: fileID, EnqueuedAt: q.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal job failed: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publish == nil || q.publish.IsClosed() {
		ch, err := q.conn.Channel()
		if err != nil {
			return fmt.Errorf("%w: open rabbitmq channel failed: %v", domain.ErrQueueUnavailable, err)
		}
		q.publish = ch
	}
	if err := declare(q.publish, kind); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	err = q.publish.PublishWithContext(
		ctx,
		"",
		QueueName(kind),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: publish failed: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// deliveries returns the consumer stream of (kind, consumer), opening a
// channel with prefetch 1 on first use.
func (q *Queue) deliveries(kind domain.JobKind, consumer string) (<-chan amqp.Delivery, error) {
	key := string(kind) + "/" + consumer
	q.mu.Lock()
	defer q.mu.Unlock()
	if d, ok := q.consumers[key]; ok {
		return d, nil
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := declare(ch, kind); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set prefetch failed: %w", err)
	}
	d, err := ch.Consume(
		QueueName(kind),
		consumer,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume queue failed: %w", err)
	}
	q.consumers[key] = d
	q.channels = append(q.channels, ch)
	return d, nil
}

// Read waits up to block for the next delivery.
func (q *Queue) Read(ctx context.Context, kind domain.JobKind, consumer string, block time.Duration) (*domain.Delivery, error) {
	deliveries, err := q.deliveries(kind, consumer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}

	timer := time.NewTimer(block)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case raw, ok := <-deliveries:
		if !ok {
			q.forget(kind, consumer)
			return nil, fmt.Errorf("%w: consumer channel closed", domain.ErrQueueUnavailable)
		}
		d := decodeDelivery(kind, raw.DeliveryTag, raw.Body, raw.Redelivered)
		d.Tag = raw
		return &d, nil
	}
}

func (q *Queue) forget(kind domain.JobKind, consumer string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.consumers, string(kind)+"/"+consumer)
}

// Ack acknowledges a delivery on the channel it came from.
func (q *Queue) Ack(_ context.Context, d *domain.Delivery) error {
	raw, ok := d.Tag.(amqp.Delivery)
	if !ok {
		return fmt.Errorf("%w: delivery %s has no amqp tag", domain.ErrInvalidInput, d.ID)
	}
	if err := raw.Ack(false); err != nil {
		return fmt.Errorf("%w: ack failed: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}

// Reclaim returns nothing: the broker requeues deliveries of dead channels.
func (q *Queue) Reclaim(context.Context, domain.JobKind, string, time.Duration, int) ([]domain.Delivery, error) {
	return nil, nil
}

// Close closes every channel and the connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ch := range q.channels {
		_ = ch.Close()
	}
	if q.publish != nil {
		_ = q.publish.Close()
	}
	return q.conn.Close()
}

// decodeDelivery turns a message body into a delivery.
func decodeDelivery(kind domain.JobKind, tag uint64, body []byte, redelivered bool) domain.Delivery {
	d := domain.Delivery{ID: fmt.Sprintf("%d", tag), Kind: kind, Attempts: 1}
	if redelivered {
		d.Attempts = 2
	}

	var m message
	if err := json.Unmarshal(body, &m); err != nil {
		d.DecodeErr = fmt.Errorf("%w: decode message %d: %v", domain.ErrInvalidJob, tag, err)
		return d
	}
	var enqueuedAt time.Time
	if m.EnqueuedAt > 0 {
		enqueuedAt = time.UnixMilli(m.EnqueuedAt).UTC()
	}
	job, err := domain.NewJob(kind, m.UserID, m.FileID, enqueuedAt)
	if err != nil {
		d.DecodeErr = err
		return d
	}
	d.Job = job
	return d
}
