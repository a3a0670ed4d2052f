package workflow

import (
	"context"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
)

// WorkflowStatus is the read-only projection returned by GetWorkflowStatus.
type WorkflowStatus struct {
	Instance *models.WorkflowInstance `json:"instance"`
	StepLogs []*models.StepLog        `json:"step_logs"`
}

// CancelWorkflow moves a pending or running instance to cancelled. It reports false when the
// instance was in any other status. In-flight steps finish; the run loop stops at the next step
// boundary.
func (e *Engine) CancelWorkflow(ctx context.Context, instanceID string) (bool, error) {
	return e.control(ctx, instanceID, persistence.Transition{
		From: []models.InstanceStatus{models.InstanceStatusPending, models.InstanceStatusRunning},
		To:   models.InstanceStatusCancelled,
	}, events.InstanceCancelledEvent)
}

// PauseWorkflow moves a running instance to paused.
func (e *Engine) PauseWorkflow(ctx context.Context, instanceID string) (bool, error) {
	return e.control(ctx, instanceID, persistence.Transition{
		From: []models.InstanceStatus{models.InstanceStatusRunning},
		To:   models.InstanceStatusPaused,
	}, events.InstancePausedEvent)
}

// ResumeWorkflow moves a paused instance back to running and enqueues its execution at its
// current step, no earlier than a pending delay.
func (e *Engine) ResumeWorkflow(ctx context.Context, instanceID string) (bool, error) {
	resumed, err := e.control(ctx, instanceID, persistence.Transition{
		From: []models.InstanceStatus{models.InstanceStatusPaused},
		To:   models.InstanceStatusRunning,
	}, events.InstanceResumedEvent)
	if err != nil || !resumed {
		return resumed, err
	}

	instance, err := e.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return true, fmt.Errorf("failed to reload instance %s: %w", instanceID, err)
	}

	runAt := e.now()
	if instance.NextStepAt != nil && instance.NextStepAt.After(runAt) {
		runAt = *instance.NextStepAt
	}

	jobID, err := e.enqueueExecution(ctx, instance, runAt)
	if err != nil {
		return true, fmt.Errorf("failed to enqueue resumed instance %s: %w", instanceID, err)
	}

	e.logger.InfoContext(ctx, "Workflow resumed", "instance_id", instanceID, "job_id", jobID, "run_at", runAt)

	return true, nil
}

// GetWorkflowStatus returns the instance and its step logs ordered by step index, then start.
func (e *Engine) GetWorkflowStatus(ctx context.Context, instanceID string) (*WorkflowStatus, error) {
	instance, err := e.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	logs, err := e.persistence.StepLogs().ByInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step logs of %s: %w", instanceID, err)
	}

	if logs == nil {
		logs = []*models.StepLog{}
	}

	return &WorkflowStatus{Instance: instance, StepLogs: logs}, nil
}

// ListInstances returns instances matching filter.
func (e *Engine) ListInstances(ctx context.Context, filter persistence.InstanceFilter) ([]*models.WorkflowInstance, error) {
	return e.persistence.Instances().List(ctx, filter)
}

func (e *Engine) control(ctx context.Context, instanceID string, t persistence.Transition, eventType events.EventType) (bool, error) {
	t.At = e.now().UTC()

	applied, err := e.persistence.Instances().Transition(ctx, instanceID, t)
	if err != nil {
		return false, err
	}

	logger := e.logger.With("instance_id", instanceID, "to", t.To)

	if !applied {
		logger.InfoContext(ctx, "Control operation had no effect")

		return false, nil
	}

	logger.InfoContext(ctx, "Instance status changed")

	if e.publisher != nil {
		instance, err := e.persistence.Instances().GetByID(ctx, instanceID)
		if err == nil {
			e.publish(ctx, eventType, instance)
		}
	}

	return true, nil
}
