package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
)

// StepOutcome is what one step attempt produced.
type StepOutcome struct {
	LogID    string
	Status   models.StepStatus
	Result   map[string]any
	Err      error
	Attempt  int
	Duration time.Duration
}

func (o *StepOutcome) Failed() bool {
	return o.Status == models.StepStatusFailed
}

// ErrorMessage returns the failure text, empty for successful steps.
func (o *StepOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}

	return o.Err.Error()
}

// StepExecutor dispatches one step to its handler and records the attempt as a step log.
type StepExecutor struct {
	logger   *slog.Logger
	registry *registry.Registry
	logs     persistence.StepLogRepository
	now      func() time.Time
}

func NewStepExecutor(logger *slog.Logger, registry *registry.Registry, logs persistence.StepLogRepository) *StepExecutor {
	return &StepExecutor{
		logger:   logger.With("module", "step_executor"),
		registry: registry,
		logs:     logs,
		now:      time.Now,
	}
}

// Execute opens a running step log, invokes the handler registered for step.Action and closes
// the log exactly once. Handler failures are reported in the outcome; the returned error is
// reserved for persistence failures.
func (x *StepExecutor) Execute(
	ctx context.Context,
	instance *models.WorkflowInstance,
	stepIndex int,
	step models.Step,
	data map[string]any,
) (*StepOutcome, error) {
	logger := x.logger.With(
		"instance_id", instance.ID,
		"step_index", stepIndex,
		"step_name", step.Name,
		"action", step.Action,
	)

	previous, err := x.logs.CountAttempts(ctx, instance.ID, stepIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts of step %d: %w", stepIndex, err)
	}

	entry := &models.StepLog{
		InstanceID:    instance.ID,
		StepIndex:     stepIndex,
		StepName:      step.Name,
		ActionType:    step.Action,
		ActionConfig:  step.Config,
		Status:        models.StepStatusRunning,
		StartedAt:     x.now().UTC(),
		AttemptNumber: previous + 1,
	}

	err = x.logs.Open(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to open step log: %w", err)
	}

	result, runErr := x.dispatch(ctx, instance, step, data)

	completedAt := x.now().UTC()
	duration := completedAt.Sub(entry.StartedAt)
	durationMs := duration.Milliseconds()

	entry.CompletedAt = &completedAt
	entry.DurationMs = &durationMs

	outcome := &StepOutcome{
		Attempt:  entry.AttemptNumber,
		Duration: duration,
	}

	if runErr != nil {
		entry.Status = models.StepStatusFailed
		entry.ErrorMessage = runErr.Error()
		outcome.Status = models.StepStatusFailed
		outcome.Err = runErr

		logger.WarnContext(ctx, "Step failed", "attempt", entry.AttemptNumber, "error", runErr)
	} else {
		entry.Status = models.StepStatusCompleted
		entry.Result = result
		outcome.Status = models.StepStatusCompleted
		outcome.Result = result

		logger.InfoContext(ctx, "Step completed", "attempt", entry.AttemptNumber, "duration_ms", durationMs)
	}

	// The handler context may have hit its deadline; the log still has to be closed.
	err = x.logs.Finish(context.WithoutCancel(ctx), entry)
	if err != nil {
		return nil, fmt.Errorf("failed to close step log %s: %w", entry.ID, err)
	}

	outcome.LogID = entry.ID

	return outcome, nil
}

func (x *StepExecutor) dispatch(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (result map[string]any, err error) {
	handler, ok := x.registry.Handler(step.Action)
	if !ok {
		return nil, &UnknownActionError{Action: step.Action}
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	result, err = handler.Execute(ctx, instance, step, data)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w", ErrStepTimeout, err)
	}

	if err == nil && result == nil {
		result = map[string]any{}
	}

	return result, err
}
