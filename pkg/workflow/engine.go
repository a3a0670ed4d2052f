// Package workflow implements the workflow engine: trigger matching, the step run loop, control
// operations and recovery of instances whose execution jobs were lost.
package workflow

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/eventbus"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultLeaseTTL = 5 * time.Minute
	tracerName      = "github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
)

// ExecutionResult is what one ExecuteWorkflow invocation ended with.
type ExecutionResult struct {
	InstanceID string                `json:"instanceId"`
	Status     models.InstanceStatus `json:"status"`
	Delayed    bool                  `json:"delayed,omitempty"`
	Retrying   bool                  `json:"retrying,omitempty"`
	NextStepAt *time.Time            `json:"nextStepAt,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// Engine owns the lifecycle of workflow instances.
type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	queue       jobs.Queue
	executor    *StepExecutor
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	workerID    string
	leaseTTL    time.Duration
	now         func() time.Time
}

type Option func(*Engine)

// WithEventBus publishes instance lifecycle events on publisher.
func WithEventBus(publisher eventbus.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithWorkerID sets the prefix of lease owner tokens. Defaults to the hostname plus a random suffix.
func WithWorkerID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.workerID = id
		}
	}
}

func WithLeaseTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.leaseTTL = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	queue jobs.Queue,
	opts ...Option,
) *Engine {
	e := &Engine{
		logger:      logger.With("module", "workflow_engine"),
		persistence: persistence,
		registry:    registry,
		queue:       queue,
		tracer:      otel.Tracer(tracerName),
		workerID:    defaultWorkerID(),
		leaseTTL:    DefaultLeaseTTL,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.executor = NewStepExecutor(logger, registry, persistence.StepLogs())
	e.executor.now = e.now

	return e
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}

	return host + "-" + uuid.New().String()[:8]
}

// WorkerID is the lease owner name of this engine.
func (e *Engine) WorkerID() string {
	return e.workerID
}

func (e *Engine) enqueueExecution(ctx context.Context, instance *models.WorkflowInstance, runAt time.Time) (string, error) {
	return e.queue.Enqueue(
		ctx,
		jobs.QueueWorkflowExecutions,
		jobs.ExecutionPayload(instance.ID, instance.DefinitionID),
		jobs.WithRunAt(runAt),
	)
}

// publish emits a lifecycle event. Bus failures never fail the workflow.
func (e *Engine) publish(ctx context.Context, eventType events.EventType, instance *models.WorkflowInstance) {
	if e.publisher == nil {
		return
	}

	event := events.NewInstanceEvent(uuid.New().String(), eventType, instance, e.now())

	err := e.publisher.Publish(ctx, instance.ID, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", eventType,
			"instance_id", instance.ID,
			"error", err)
	}
}

func resultOf(instance *models.WorkflowInstance) *ExecutionResult {
	return &ExecutionResult{
		InstanceID: instance.ID,
		Status:     instance.Status,
		NextStepAt: instance.NextStepAt,
		Error:      instance.ErrorMessage,
	}
}
