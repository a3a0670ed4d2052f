// Package redisqueue implements a durable delayed job queue on Redis sorted sets.
//
// Each queue is a sorted set scored by the job's due time in Unix milliseconds. Consumers poll
// for due members and claim each one with ZREM; only the consumer whose ZREM removed the member
// runs the job, so concurrent consumers never run a job twice.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	redis "github.com/redis/go-redis/v9"
)

type Config struct {
	Prefix       string
	PollInterval time.Duration
	BatchSize    int64
	Concurrency  int
	MaxAttempts  int
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "lazi:jobs:"
	}

	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}

	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}

	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}

	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 10 * time.Second
	}

	return c
}

type Queue struct {
	client redis.UniversalClient
	config Config
	logger *slog.Logger
	now    func() time.Time
}

func New(client redis.UniversalClient, logger *slog.Logger, config Config) *Queue {
	return &Queue{
		client: client,
		config: config.withDefaults(),
		logger: logger.With("module", "redis_queue"),
		now:    time.Now,
	}
}

// Connect parses a redis:// URL, verifies the connection and returns a queue on it.
func Connect(ctx context.Context, url string, logger *slog.Logger, config Config) (*Queue, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return New(client, logger, config), nil
}

func (q *Queue) key(queue string) string {
	return q.config.Prefix + queue
}

func (q *Queue) deadKey(queue string) string {
	return q.config.Prefix + queue + ":dead"
}

func (q *Queue) Enqueue(ctx context.Context, queue string, payload map[string]any, opts ...jobs.Option) (string, error) {
	job := jobs.NewJob(queue, payload, q.now(), opts...)

	err := q.store(ctx, job)
	if err != nil {
		return "", err
	}

	q.logger.DebugContext(ctx, "Job enqueued", "queue", queue, "job_id", job.ID, "run_at", job.RunAt)

	return job.ID, nil
}

func (q *Queue) store(ctx context.Context, job *jobs.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID, err)
	}

	err = q.client.ZAdd(ctx, q.key(job.Queue), redis.Z{
		Score:  float64(job.RunAt.UnixMilli()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s on %s: %w", job.ID, job.Queue, err)
	}

	return nil
}

// ClaimDue removes and returns up to BatchSize jobs whose due time has passed.
func (q *Queue) ClaimDue(ctx context.Context, queue string) ([]*jobs.Job, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key(queue), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: q.config.BatchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs on %s: %w", queue, err)
	}

	claimed := make([]*jobs.Job, 0, len(members))

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.key(queue), member).Result()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim job on %s: %w", queue, err)
		}

		if removed == 0 {
			continue
		}

		var job jobs.Job

		err = json.Unmarshal([]byte(member), &job)
		if err != nil {
			q.logger.ErrorContext(ctx, "Dropping malformed job", "queue", queue, "error", err)

			continue
		}

		claimed = append(claimed, &job)
	}

	return claimed, nil
}

// Consume polls queue and runs handler on each claimed job with Concurrency workers.
// It returns when ctx is done and in-flight jobs have finished.
func (q *Queue) Consume(ctx context.Context, queue string, handler jobs.Handler) error {
	logger := q.logger.With("queue", queue)
	logger.InfoContext(ctx, "Starting consumer", "concurrency", q.config.Concurrency)

	work := make(chan *jobs.Job)

	var wg sync.WaitGroup

	for range q.config.Concurrency {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for job := range work {
				q.handle(ctx, job, handler)
			}
		}()
	}

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	defer func() {
		close(work)
		wg.Wait()
		logger.InfoContext(ctx, "Consumer stopped")
	}()

	for {
		claimed, err := q.ClaimDue(ctx, queue)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "Failed to claim jobs", "error", err)
		}

		for i, job := range claimed {
			select {
			case work <- job:
			case <-ctx.Done():
				q.requeue(context.WithoutCancel(ctx), claimed[i:])

				return nil
			}
		}

		if len(claimed) == int(q.config.BatchSize) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (q *Queue) handle(ctx context.Context, job *jobs.Job, handler jobs.Handler) {
	err := handler(ctx, job)
	if err == nil {
		return
	}

	job.Attempts++

	logger := q.logger.With("queue", job.Queue, "job_id", job.ID, "attempts", job.Attempts)

	if job.Attempts >= q.config.MaxAttempts {
		logger.ErrorContext(ctx, "Job exhausted its attempts", "error", err)

		data, marshalErr := json.Marshal(job)
		if marshalErr == nil {
			marshalErr = q.client.LPush(context.WithoutCancel(ctx), q.deadKey(job.Queue), data).Err()
		}

		if marshalErr != nil {
			logger.ErrorContext(ctx, "Failed to store dead job", "error", marshalErr)
		}

		return
	}

	job.RunAt = q.now().Add(q.config.RetryBackoff << (job.Attempts - 1))

	logger.WarnContext(ctx, "Job failed, retrying", "error", err, "run_at", job.RunAt)

	storeErr := q.store(context.WithoutCancel(ctx), job)
	if storeErr != nil {
		logger.ErrorContext(ctx, "Failed to reschedule job", "error", storeErr)
	}
}

func (q *Queue) requeue(ctx context.Context, pending []*jobs.Job) {
	for _, job := range pending {
		err := q.store(ctx, job)
		if err != nil {
			q.logger.ErrorContext(ctx, "Failed to return unprocessed job", "job_id", job.ID, "error", err)
		}
	}
}

// Pending returns how many jobs, due or not, are waiting on queue.
func (q *Queue) Pending(ctx context.Context, queue string) (int64, error) {
	return q.client.ZCard(ctx, q.key(queue)).Result()
}

// Dead returns how many jobs on queue exhausted their attempts.
func (q *Queue) Dead(ctx context.Context, queue string) (int64, error) {
	return q.client.LLen(ctx, q.deadKey(queue)).Result()
}

func (q *Queue) HealthCheck(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
