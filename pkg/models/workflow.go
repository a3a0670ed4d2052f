// Package models defines the core domain models for event-triggered workflow automation
package models

import "time"

// ActionType names the handler a step dispatches to.
type ActionType string

const (
	ActionDelay       ActionType = "delay"
	ActionCondition   ActionType = "condition"
	ActionSendSMS     ActionType = "send_sms"
	ActionSendEmail   ActionType = "send_email"
	ActionUpdateStage ActionType = "update_stage"
	ActionAPICall     ActionType = "api_call"
)

// TriggerConditions maps a context field (dot-path) to either a literal or an operator object
// such as {"$gt": 100}.
type TriggerConditions map[string]any

// Step is one action within a definition's ordered list.
type Step struct {
	Name   string         `json:"name"   validate:"required"`
	Action ActionType     `json:"action" validate:"required"`
	Config map[string]any `json:"config"`
}

// WorkflowDefinition is a template of ordered steps plus the triggering event and conditions.
// A definition version is immutable once saved; edits produce a new version.
type WorkflowDefinition struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"                         validate:"required,min=3"`
	Description       string            `json:"description,omitempty"`
	Version           int               `json:"version"`
	TriggerEvent      string            `json:"trigger_event"                validate:"required"`
	TriggerConditions TriggerConditions `json:"trigger_conditions,omitempty"`
	Steps             []Step            `json:"steps"                        validate:"required,min=1,dive"`
	Enabled           bool              `json:"enabled"`
	MaxRetries        int               `json:"max_retries"                  validate:"gte=0,lte=10"`
	RetryDelaySeconds int               `json:"retry_delay_seconds"          validate:"gte=0"`
	TimeoutSeconds    int               `json:"timeout_seconds"              validate:"gte=0"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// RetryDelay returns the configured delay between attempts of a failed step.
func (d *WorkflowDefinition) RetryDelay() time.Duration {
	return time.Duration(d.RetryDelaySeconds) * time.Second
}

// StepTimeout returns the deadline applied to each handler call, zero meaning none.
func (d *WorkflowDefinition) StepTimeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}
