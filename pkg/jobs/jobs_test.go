package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	name   string
	queues []string
}

func (r *recordingQueue) Enqueue(_ context.Context, queue string, _ map[string]any, _ ...jobs.Option) (string, error) {
	r.queues = append(r.queues, queue)

	return r.name + "-job", nil
}

func TestNewJob(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	job := jobs.NewJob(jobs.QueueWorkflowExecutions, jobs.ExecutionPayload("inst-1", "def-1"), now)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, now, job.RunAt)
	assert.False(t, job.Delayed(now))
	assert.Equal(t, "inst-1", job.InstanceID())

	later := now.Add(time.Minute)
	delayed := jobs.NewJob(jobs.QueueWorkflowExecutions, nil, now, jobs.WithRunAt(later), jobs.WithJobID("fixed"))
	assert.Equal(t, "fixed", delayed.ID)
	assert.Equal(t, later, delayed.RunAt)
	assert.True(t, delayed.Delayed(now))
	assert.NotNil(t, delayed.Payload)
	assert.Empty(t, delayed.InstanceID())

	past := jobs.NewJob(jobs.QueueNotifications, nil, now, jobs.WithRunAt(now.Add(-time.Hour)))
	assert.Equal(t, now, past.RunAt)
}

func TestRouter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	redis := &recordingQueue{name: "redis"}
	kafka := &recordingQueue{name: "kafka"}

	router := jobs.NewRouter(redis).Route(jobs.QueueNotifications, kafka)

	id, err := router.Enqueue(ctx, jobs.QueueNotifications, nil)
	require.NoError(t, err)
	assert.Equal(t, "kafka-job", id)

	id, err = router.Enqueue(ctx, jobs.QueueWorkflowExecutions, nil)
	require.NoError(t, err)
	assert.Equal(t, "redis-job", id)

	_, err = jobs.NewRouter(nil).Enqueue(ctx, "anything", nil)
	require.ErrorIs(t, err, jobs.ErrUnknownQueue)
}
