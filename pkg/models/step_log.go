package models

import "time"

// StepStatus represents the state of a single step attempt.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepLog is the persisted record of one step execution attempt.
type StepLog struct {
	ID            string         `json:"id"`
	InstanceID    string         `json:"instance_id"`
	StepIndex     int            `json:"step_index"`
	StepName      string         `json:"step_name"`
	ActionType    ActionType     `json:"action_type"`
	ActionConfig  map[string]any `json:"action_config,omitempty"`
	Status        StepStatus     `json:"status"`
	Result        map[string]any `json:"result,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	DurationMs    *int64         `json:"duration_ms,omitempty"`
	AttemptNumber int            `json:"attempt_number"`
}
