package models

import "time"

// InstanceStatus represents the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusRunning   InstanceStatus = "running"
	InstanceStatusPaused    InstanceStatus = "paused"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusFailed    InstanceStatus = "failed"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible from this status.
func (s InstanceStatus) IsTerminal() bool {
	switch s {
	case InstanceStatusCompleted, InstanceStatusFailed, InstanceStatusCancelled:
		return true
	default:
		return false
	}
}

// StepResult is the outcome of one attempted step, appended to the instance in order.
type StepResult struct {
	StepIndex   int            `json:"step_index"`
	StepName    string         `json:"step_name"`
	Action      ActionType     `json:"action"`
	Status      StepStatus     `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

// WorkflowInstance is one execution of a definition against a specific entity.
type WorkflowInstance struct {
	ID                string         `json:"id"`
	DefinitionID      string         `json:"definition_id"`
	DefinitionVersion int            `json:"definition_version"`
	EntityType        string         `json:"entity_type"`
	EntityID          string         `json:"entity_id"`
	Status            InstanceStatus `json:"status"`
	Context           map[string]any `json:"context"`
	CurrentStep       int            `json:"current_step"`
	StepResults       []StepResult   `json:"step_results"`
	ErrorMessage      string         `json:"error_message,omitempty"`
	NextStepAt        *time.Time     `json:"next_step_at,omitempty"`
	LockedBy          string         `json:"locked_by,omitempty"`
	LockedUntil       *time.Time     `json:"locked_until,omitempty"`
	Version           int64          `json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// LeaseHeld reports whether an unexpired execution lease is held. A lease is never re-entrant:
// every execution claims it under its own token.
func (i *WorkflowInstance) LeaseHeld(now time.Time) bool {
	if i.LockedBy == "" || i.LockedUntil == nil {
		return false
	}

	return i.LockedUntil.After(now)
}
