package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
)

// Worker runs execution jobs from the workflow-executions queue.
type Worker struct {
	engine   *Engine
	consumer jobs.Consumer
	logger   *slog.Logger
}

func NewWorker(engine *Engine, consumer jobs.Consumer, logger *slog.Logger) *Worker {
	return &Worker{
		engine:   engine,
		consumer: consumer,
		logger:   logger.With("module", "workflow_worker", "worker_id", engine.WorkerID()),
	}
}

// Run consumes execution jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Consume(ctx, jobs.QueueWorkflowExecutions, w.HandleJob)
}

// HandleJob executes the instance named by job. Jobs for missing instances and for instances
// leased by another worker are dropped; infrastructure errors are returned so the queue retries.
func (w *Worker) HandleJob(ctx context.Context, job *jobs.Job) error {
	instanceID := job.InstanceID()
	if instanceID == "" {
		w.logger.WarnContext(ctx, "Dropping execution job without instanceId", "job_id", job.ID)

		return nil
	}

	logger := w.logger.With("job_id", job.ID, "instance_id", instanceID)

	result, err := w.engine.ExecuteWorkflow(ctx, instanceID)

	switch {
	case err == nil:
		logger.InfoContext(ctx, "Execution job finished",
			"status", result.Status,
			"delayed", result.Delayed,
			"retrying", result.Retrying)

		return nil
	case errors.Is(err, ErrInstanceLocked):
		logger.DebugContext(ctx, "Instance is executing elsewhere, dropping job")

		return nil
	case errors.Is(err, persistence.ErrInstanceNotFound):
		logger.WarnContext(ctx, "Dropping job for unknown instance")

		return nil
	default:
		return fmt.Errorf("failed to execute instance %s: %w", instanceID, err)
	}
}
