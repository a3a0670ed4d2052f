package redisqueue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	redisOnce     sync.Once
	redisEndpoint string
	redisErr      error
)

func setupQueue(t *testing.T, config Config) (*Queue, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	redisOnce.Do(func() {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		if err != nil {
			redisErr = err

			return
		}

		redisEndpoint, redisErr = container.Endpoint(context.Background(), "")
	})
	require.NoError(t, redisErr)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	config.Prefix = "test:" + t.Name() + ":"
	queue, err := Connect(ctx, "redis://"+redisEndpoint+"/0", logger, config)
	require.NoError(t, err)

	t.Cleanup(func() {
		keys, err := queue.client.Keys(context.Background(), config.Prefix+"*").Result()
		if err == nil && len(keys) > 0 {
			queue.client.Del(context.Background(), keys...)
		}

		_ = queue.Close()
	})

	return queue, ctx
}

func TestQueue_ClaimDueHonorsRunAt(t *testing.T) {
	queue, ctx := setupQueue(t, Config{})

	now := time.Now()
	queue.now = func() time.Time { return now }

	dueID, err := queue.Enqueue(ctx, jobs.QueueWorkflowExecutions, jobs.ExecutionPayload("inst-1", "def-1"))
	require.NoError(t, err)

	_, err = queue.Enqueue(ctx, jobs.QueueWorkflowExecutions, jobs.ExecutionPayload("inst-2", "def-1"), jobs.WithRunAt(now.Add(time.Minute)))
	require.NoError(t, err)

	pending, err := queue.Pending(ctx, jobs.QueueWorkflowExecutions)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	claimed, err := queue.ClaimDue(ctx, jobs.QueueWorkflowExecutions)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, dueID, claimed[0].ID)
	assert.Equal(t, "inst-1", claimed[0].InstanceID())

	queue.now = func() time.Time { return now.Add(2 * time.Minute) }

	claimed, err = queue.ClaimDue(ctx, jobs.QueueWorkflowExecutions)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, "inst-2", claimed[0].InstanceID())

	pending, err = queue.Pending(ctx, jobs.QueueWorkflowExecutions)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueue_ConcurrentClaimsRunEachJobOnce(t *testing.T) {
	queue, ctx := setupQueue(t, Config{BatchSize: 100})

	for range 40 {
		_, err := queue.Enqueue(ctx, jobs.QueueNotifications, map[string]any{"to": "+15550100"})
		require.NoError(t, err)
	}

	var (
		total atomic.Int64
		wg    sync.WaitGroup
	)

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			claimed, err := queue.ClaimDue(ctx, jobs.QueueNotifications)
			assert.NoError(t, err)
			total.Add(int64(len(claimed)))
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(40), total.Load())
}

func TestQueue_ConsumeRetriesThenDeadLetters(t *testing.T) {
	queue, ctx := setupQueue(t, Config{
		PollInterval: 20 * time.Millisecond,
		MaxAttempts:  2,
		RetryBackoff: time.Millisecond,
		Concurrency:  2,
	})

	_, err := queue.Enqueue(ctx, jobs.QueueOutboundSync, map[string]any{"entity_id": "J-1"})
	require.NoError(t, err)

	_, err = queue.Enqueue(ctx, jobs.QueueOutboundSync, map[string]any{"entity_id": "J-2"})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)

	consumeCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)

	go func() {
		done <- queue.Consume(consumeCtx, jobs.QueueOutboundSync, func(_ context.Context, job *jobs.Job) error {
			entity, _ := job.Payload["entity_id"].(string)

			mu.Lock()
			attempts[entity]++
			mu.Unlock()

			if entity == "J-2" {
				return errors.New("remote system unavailable")
			}

			return nil
		})
	}()

	require.Eventually(t, func() bool {
		dead, err := queue.Dead(ctx, jobs.QueueOutboundSync)

		return err == nil && dead == 1
	}, 10*time.Second, 20*time.Millisecond)

	stop()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, 1, attempts["J-1"])
	assert.Equal(t, 2, attempts["J-2"])
}

func TestConnect_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), "://nope", slog.Default(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	config := Config{}.withDefaults()
	assert.Equal(t, "lazi:jobs:", config.Prefix)
	assert.Equal(t, time.Second, config.PollInterval)
	assert.Equal(t, int64(50), config.BatchSize)
	assert.Equal(t, 4, config.Concurrency)
	assert.Equal(t, 5, config.MaxAttempts)
}
