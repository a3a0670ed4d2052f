package workflow

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/delay"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/otelhelper"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ExecuteWorkflow runs the instance from its current step until it completes, fails, is
// suspended by a delay or retry, or is found paused or cancelled. Each step runs under the
// instance execution lease; ErrInstanceLocked means another worker is executing it.
// Infrastructure errors are returned wrapped and leave the instance status untouched.
func (e *Engine) ExecuteWorkflow(ctx context.Context, instanceID string) (*ExecutionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.String(otelhelper.WorkerIDKey, e.workerID),
	)
	defer span.End()

	result, err := e.execute(ctx, instanceID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String("fieldservice.workflow.status", string(result.Status)))

	return result, nil
}

func (e *Engine) execute(ctx context.Context, instanceID string) (*ExecutionResult, error) {
	instances := e.persistence.Instances()

	instance, err := instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load instance %s: %w", instanceID, err)
	}

	if instance.Status.IsTerminal() || instance.Status == models.InstanceStatusPaused {
		return resultOf(instance), nil
	}

	definition, err := e.persistence.Definitions().GetVersion(ctx, instance.DefinitionID, instance.DefinitionVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %s v%d: %w", instance.DefinitionID, instance.DefinitionVersion, err)
	}

	if instance.Status == models.InstanceStatusPending {
		now := e.now().UTC()

		started, err := instances.Transition(ctx, instanceID, persistence.Transition{
			From: []models.InstanceStatus{models.InstanceStatusPending},
			To:   models.InstanceStatusRunning,
			At:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start instance %s: %w", instanceID, err)
		}

		if started {
			instance.Status = models.InstanceStatusRunning
			instance.StartedAt = &now
			e.publish(ctx, events.InstanceStartedEvent, instance)
		}
	}

	owner := e.leaseToken()

	for {
		result, err := e.leased(ctx, instanceID, owner, func() (*ExecutionResult, error) {
			return e.advance(ctx, definition, instanceID)
		})
		if err != nil {
			return nil, err
		}

		if result != nil {
			return result, nil
		}
	}
}

// leaseToken names the lease owner of a single ExecuteWorkflow call. Tokens are unique per call,
// including calls on the same worker.
func (e *Engine) leaseToken() string {
	return e.workerID + "/" + uuid.NewString()
}

// leased runs fn while owner holds the instance execution lease.
func (e *Engine) leased(
	ctx context.Context,
	instanceID, owner string,
	fn func() (*ExecutionResult, error),
) (*ExecutionResult, error) {
	now := e.now().UTC()

	claimed, err := e.persistence.Instances().Claim(ctx, instanceID, owner, now.Add(e.leaseTTL), now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim instance %s: %w", instanceID, err)
	}

	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrInstanceLocked, instanceID)
	}

	defer func() {
		err := e.persistence.Instances().Release(context.WithoutCancel(ctx), instanceID, owner)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to release instance lease", "instance_id", instanceID, "error", err)
		}
	}()

	return fn()
}

// advance re-reads the instance and attempts its current step. A nil result means the loop
// should continue with the next step.
func (e *Engine) advance(ctx context.Context, definition *models.WorkflowDefinition, instanceID string) (*ExecutionResult, error) {
	instance, err := e.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload instance %s: %w", instanceID, err)
	}

	switch instance.Status {
	case models.InstanceStatusCancelled, models.InstanceStatusPaused,
		models.InstanceStatusCompleted, models.InstanceStatusFailed:
		return resultOf(instance), nil
	case models.InstanceStatusPending, models.InstanceStatusRunning:
	}

	now := e.now().UTC()

	if instance.NextStepAt != nil && instance.NextStepAt.After(now) {
		result := resultOf(instance)
		result.Delayed = true

		return result, nil
	}

	index := instance.CurrentStep
	if index >= len(definition.Steps) {
		return e.finish(ctx, instance, models.InstanceStatusCompleted, "")
	}

	step := definition.Steps[index]

	outcome, err := e.runStep(ctx, definition, instance, index, step)
	if err != nil {
		return nil, err
	}

	if outcome.Failed() && retryable(definition, outcome) {
		return e.retry(ctx, definition, instance, outcome)
	}

	stepResult := models.StepResult{
		StepIndex:   index,
		StepName:    step.Name,
		Action:      step.Action,
		Status:      outcome.Status,
		Result:      outcome.Result,
		Error:       outcome.ErrorMessage(),
		CompletedAt: e.now().UTC(),
	}

	err = e.persistence.Instances().AdvanceStep(ctx, instanceID, index+1, stepResult, stepResult.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to persist step %d of instance %s: %w", index, instanceID, err)
	}

	instance.CurrentStep = index + 1
	instance.StepResults = append(instance.StepResults, stepResult)
	instance.NextStepAt = nil

	if outcome.Failed() {
		return e.finish(ctx, instance, models.InstanceStatusFailed, fmt.Sprintf("Step %q failed: %s", step.Name, outcome.ErrorMessage()))
	}

	switch step.Action {
	case models.ActionDelay:
		if until, ok := delay.Until(outcome.Result); ok {
			return e.suspend(ctx, instance, until)
		}
	case models.ActionCondition:
		if met, ok := outcome.Result["conditionMet"].(bool); ok && !met {
			e.logger.InfoContext(ctx, "Condition not met, stopping workflow",
				"instance_id", instanceID, "step_name", step.Name)

			return e.finish(ctx, instance, models.InstanceStatusCompleted, "")
		}
	default:
	}

	if instance.CurrentStep >= len(definition.Steps) {
		return e.finish(ctx, instance, models.InstanceStatusCompleted, "")
	}

	return nil, nil
}

func (e *Engine) runStep(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	instance *models.WorkflowInstance,
	index int,
	step models.Step,
) (*StepOutcome, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.step",
		attribute.String(otelhelper.DefinitionIDKey, definition.ID),
		attribute.String(otelhelper.InstanceIDKey, instance.ID),
		attribute.Int(otelhelper.StepIndexKey, index),
		attribute.String(otelhelper.StepNameKey, step.Name),
		attribute.String(otelhelper.ActionTypeKey, string(step.Action)),
	)
	defer span.End()

	stepCtx := ctx

	if timeout := definition.StepTimeout(); timeout > 0 {
		var cancel context.CancelFunc

		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	outcome, err := e.executor.Execute(stepCtx, instance, index, step, stepData(definition, instance))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.Int(otelhelper.AttemptKey, outcome.Attempt))

	if outcome.Failed() {
		otelhelper.SetError(span, outcome.Err)
	}

	return outcome, nil
}

// stepData is what handlers evaluate against: the instance context plus workflow metadata and
// the results of completed steps by name.
func stepData(definition *models.WorkflowDefinition, instance *models.WorkflowInstance) map[string]any {
	data, _ := cloneValue(instance.Context).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}

	steps := make(map[string]any, len(instance.StepResults))
	for _, result := range instance.StepResults {
		if result.Status == models.StepStatusCompleted {
			steps[result.StepName] = maps.Clone(result.Result)
		}
	}

	data["workflow"] = map[string]any{
		"instance_id":   instance.ID,
		"definition_id": definition.ID,
		"name":          definition.Name,
		"entity_type":   instance.EntityType,
		"entity_id":     instance.EntityID,
	}
	data["steps"] = steps

	return data
}

// retryable reports whether a failed attempt should be rescheduled instead of failing the
// instance. Missing handlers and invalid configs fail the same way on every attempt.
func retryable(definition *models.WorkflowDefinition, outcome *StepOutcome) bool {
	if definition.MaxRetries <= 0 || outcome.Attempt > definition.MaxRetries {
		return false
	}

	return !errors.Is(outcome.Err, ErrUnknownAction) && !actions.IsValidationError(outcome.Err)
}

func (e *Engine) retry(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	instance *models.WorkflowInstance,
	outcome *StepOutcome,
) (*ExecutionResult, error) {
	due := e.now().UTC().Add(definition.RetryDelay())

	e.logger.InfoContext(ctx, "Retrying failed step",
		"instance_id", instance.ID,
		"step_index", instance.CurrentStep,
		"attempt", outcome.Attempt,
		"max_retries", definition.MaxRetries,
		"retry_at", due)

	result, err := e.suspend(ctx, instance, due)
	if err != nil {
		return nil, err
	}

	result.Delayed = false
	result.Retrying = true
	result.Error = outcome.ErrorMessage()

	return result, nil
}

// suspend records when the next step is due and enqueues the execution job for that time.
func (e *Engine) suspend(ctx context.Context, instance *models.WorkflowInstance, due time.Time) (*ExecutionResult, error) {
	due = due.UTC()

	err := e.persistence.Instances().ScheduleNextStep(ctx, instance.ID, due, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to schedule instance %s: %w", instance.ID, err)
	}

	instance.NextStepAt = &due

	jobID, err := e.enqueueExecution(ctx, instance, due)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue resumption of instance %s: %w", instance.ID, err)
	}

	e.logger.InfoContext(ctx, "Workflow suspended",
		"instance_id", instance.ID,
		"current_step", instance.CurrentStep,
		"next_step_at", due,
		"job_id", jobID)

	e.publish(ctx, events.InstanceDelayedEvent, instance)

	return &ExecutionResult{
		InstanceID: instance.ID,
		Status:     models.InstanceStatusRunning,
		Delayed:    true,
		NextStepAt: &due,
	}, nil
}

// finish moves a running instance to a terminal status. A concurrent cancel wins: the stored
// status is returned instead.
func (e *Engine) finish(ctx context.Context, instance *models.WorkflowInstance, status models.InstanceStatus, message string) (*ExecutionResult, error) {
	now := e.now().UTC()

	applied, err := e.persistence.Instances().Transition(ctx, instance.ID, persistence.Transition{
		From:         []models.InstanceStatus{models.InstanceStatusRunning, models.InstanceStatusPending},
		To:           status,
		At:           now,
		ErrorMessage: message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark instance %s %s: %w", instance.ID, status, err)
	}

	if !applied {
		current, err := e.persistence.Instances().GetByID(ctx, instance.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload instance %s: %w", instance.ID, err)
		}

		return resultOf(current), nil
	}

	instance.Status = status
	instance.ErrorMessage = message
	instance.CompletedAt = &now

	eventType := events.InstanceCompletedEvent
	if status == models.InstanceStatusFailed {
		eventType = events.InstanceFailedEvent

		e.logger.WarnContext(ctx, "Workflow failed", "instance_id", instance.ID, "error", message)
	} else {
		e.logger.InfoContext(ctx, "Workflow completed",
			"instance_id", instance.ID,
			"steps_attempted", len(instance.StepResults))
	}

	e.publish(ctx, eventType, instance)

	return resultOf(instance), nil
}
