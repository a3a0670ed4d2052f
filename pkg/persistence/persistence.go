// Package persistence provides the storage abstraction for workflow definitions, triggers,
// instances and step logs.
package persistence

import (
	"context"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

type Persistence interface {
	Definitions() DefinitionRepository
	Triggers() TriggerRepository
	Instances() InstanceRepository
	StepLogs() StepLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefinitionRepository stores definitions. Every Save also records an immutable snapshot of
// the saved version, which instances execute against.
type DefinitionRepository interface {
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error)
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
}

type TriggerRepository interface {
	Save(ctx context.Context, trigger *models.Trigger) error
	GetByID(ctx context.Context, id string) (*models.Trigger, error)
	// EnabledForEvent returns the enabled bindings for eventName, highest priority first.
	EnabledForEvent(ctx context.Context, eventName string) ([]*models.Trigger, error)
	ByDefinition(ctx context.Context, definitionID string) ([]*models.Trigger, error)
	GetAll(ctx context.Context) ([]*models.Trigger, error)
}

// Transition is a conditional status change: it applies only when the instance is currently in
// one of From.
type Transition struct {
	From         []models.InstanceStatus
	To           models.InstanceStatus
	At           time.Time
	ErrorMessage string
}

// InstanceFilter narrows List. Zero values match everything.
type InstanceFilter struct {
	DefinitionID string
	EntityType   string
	EntityID     string
	Status       models.InstanceStatus
	Limit        int
}

type InstanceRepository interface {
	Create(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	List(ctx context.Context, filter InstanceFilter) ([]*models.WorkflowInstance, error)

	// Transition applies t and reports whether the instance was in an allowed source status.
	// Moving to running sets started_at if unset; moving to a terminal status sets completed_at.
	Transition(ctx context.Context, id string, t Transition) (bool, error)

	// AdvanceStep appends result to step_results, moves current_step forward to nextStep
	// (never backwards) and clears next_step_at.
	AdvanceStep(ctx context.Context, id string, nextStep int, result models.StepResult, at time.Time) error

	// ScheduleNextStep records when the next step is due.
	ScheduleNextStep(ctx context.Context, id string, due time.Time, at time.Time) error

	// Claim acquires the execution lease for owner until the given time. It fails while any
	// lease, including one held by the same owner, has not expired at now.
	Claim(ctx context.Context, id, owner string, until, now time.Time) (bool, error)
	Release(ctx context.Context, id, owner string) error

	// ListRecoverable returns instances whose execution job may have been lost: running ones with
	// no live lease that became due before staleBefore, and pending ones created before it.
	ListRecoverable(ctx context.Context, now, staleBefore time.Time, limit int) ([]*models.WorkflowInstance, error)
}

type StepLogRepository interface {
	// Open stores a new running log entry, assigning its ID when empty.
	Open(ctx context.Context, log *models.StepLog) error
	// Finish closes a running entry exactly once.
	Finish(ctx context.Context, log *models.StepLog) error
	// ByInstance returns logs ordered by step index, then start time.
	ByInstance(ctx context.Context, instanceID string) ([]*models.StepLog, error)
	CountAttempts(ctx context.Context, instanceID string, stepIndex int) (int, error)
}
