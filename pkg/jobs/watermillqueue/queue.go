// Package watermillqueue publishes fire-and-forget jobs on a watermill transport (Kafka or Go channels).
package watermillqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/ThreeDotsLabs/watermill/message"
)

const QueueMetadataKey = "queue"

// Queue delivers jobs immediately. Delayed jobs are rejected with jobs.ErrDelayNotSupported.
type Queue struct {
	publisher   message.Publisher
	subscriber  message.Subscriber
	topicPrefix string
	logger      *slog.Logger
	now         func() time.Time
}

func New(publisher message.Publisher, subscriber message.Subscriber, topicPrefix string, logger *slog.Logger) *Queue {
	return &Queue{
		publisher:   publisher,
		subscriber:  subscriber,
		topicPrefix: topicPrefix,
		logger:      logger.With("module", "watermill_queue"),
		now:         time.Now,
	}
}

// Topic returns the transport topic carrying queue.
func (q *Queue) Topic(queue string) string {
	return q.topicPrefix + queue
}

func (q *Queue) Enqueue(ctx context.Context, queue string, payload map[string]any, opts ...jobs.Option) (string, error) {
	now := q.now()

	job := jobs.NewJob(queue, payload, now, opts...)
	if job.Delayed(now.Add(time.Second)) {
		return "", fmt.Errorf("%w: %s", jobs.ErrDelayNotSupported, queue)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	msg := message.NewMessage(job.ID, data)
	msg.Metadata.Set(QueueMetadataKey, queue)
	msg.SetContext(ctx)

	err = q.publisher.Publish(q.Topic(queue), msg)
	if err != nil {
		return "", fmt.Errorf("failed to publish job %s on %s: %w", job.ID, queue, err)
	}

	q.logger.DebugContext(ctx, "Job published", "queue", queue, "job_id", job.ID)

	return job.ID, nil
}

// Consume subscribes to queue and acks each message whose handler succeeds.
func (q *Queue) Consume(ctx context.Context, queue string, handler jobs.Handler) error {
	if q.subscriber == nil {
		return fmt.Errorf("queue %s has no subscriber configured", queue)
	}

	messages, err := q.subscriber.Subscribe(ctx, q.Topic(queue))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var job jobs.Job

			err := json.Unmarshal(msg.Payload, &job)
			if err != nil {
				q.logger.ErrorContext(ctx, "Dropping malformed job", "queue", queue, "message_id", msg.UUID, "error", err)
				msg.Ack()

				continue
			}

			err = handler(ctx, &job)
			if err != nil {
				q.logger.WarnContext(ctx, "Job failed", "queue", queue, "job_id", job.ID, "error", err)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}
}

func (q *Queue) Close() error {
	err := q.publisher.Close()
	if err != nil {
		return err
	}

	if q.subscriber != nil {
		return q.subscriber.Close()
	}

	return nil
}
