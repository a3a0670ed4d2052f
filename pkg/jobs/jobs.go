// Package jobs defines the job queue used to schedule workflow execution and side effects.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Queue names.
const (
	QueueWorkflowExecutions = "workflow-executions"
	QueueNotifications      = "notifications"
	QueueOutboundSync       = "outbound-sync"
)

var (
	ErrDelayNotSupported = errors.New("queue does not support delayed jobs")
	ErrUnknownQueue      = errors.New("no backend configured for queue")
)

// Job is a unit of work on a named queue.
type Job struct {
	ID         string         `json:"id"`
	Queue      string         `json:"queue"`
	Payload    map[string]any `json:"payload"`
	RunAt      time.Time      `json:"run_at"`
	Attempts   int            `json:"attempts"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// Queue accepts jobs. Implementations return the job ID.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload map[string]any, opts ...Option) (string, error)
}

// Handler processes one job. A returned error asks the backend to retry the job.
type Handler func(ctx context.Context, job *Job) error

// Consumer delivers jobs from a queue to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler Handler) error
}

type options struct {
	id    string
	runAt time.Time
}

type Option func(*options)

// WithRunAt schedules the job to become available at t.
func WithRunAt(t time.Time) Option {
	return func(o *options) {
		o.runAt = t
	}
}

// WithDelay schedules the job to become available after d.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.runAt = time.Now().Add(d)
	}
}

// WithJobID sets an explicit job ID instead of a generated one.
func WithJobID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// NewJob applies opts and builds a job ready to be stored.
func NewJob(queue string, payload map[string]any, now time.Time, opts ...Option) *Job {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.id == "" {
		o.id = uuid.New().String()
	}

	runAt := o.runAt
	if runAt.IsZero() || runAt.Before(now) {
		runAt = now
	}

	if payload == nil {
		payload = map[string]any{}
	}

	return &Job{
		ID:         o.id,
		Queue:      queue,
		Payload:    payload,
		RunAt:      runAt,
		EnqueuedAt: now,
	}
}

// Delayed reports whether the job should not run before a point later than now.
func (j *Job) Delayed(now time.Time) bool {
	return j.RunAt.After(now)
}

// ExecutionPayload is the payload of a job on QueueWorkflowExecutions.
func ExecutionPayload(instanceID, definitionID string) map[string]any {
	return map[string]any{
		"instanceId":   instanceID,
		"definitionId": definitionID,
	}
}

// InstanceID extracts the instance ID from an execution job payload.
func (j *Job) InstanceID() string {
	id, _ := j.Payload["instanceId"].(string)

	return id
}
