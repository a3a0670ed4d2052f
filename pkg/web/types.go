// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
)

// StepRequest is one step of a definition request body.
type StepRequest struct {
	Name   string         `json:"name"   validate:"required"`
	Action string         `json:"action" validate:"required"`
	Config map[string]any `json:"config"`
}

// DefinitionRequest is the request body for creating or replacing a workflow definition.
type DefinitionRequest struct {
	Name              string         `json:"name"                validate:"required,min=3"`
	Description       string         `json:"description"`
	TriggerEvent      string         `json:"trigger_event"       validate:"required"`
	TriggerConditions map[string]any `json:"trigger_conditions"`
	Steps             []StepRequest  `json:"steps"               validate:"required,min=1,dive"`
	Enabled           *bool          `json:"enabled"`
	MaxRetries        int            `json:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int            `json:"retry_delay_seconds" validate:"gte=0"`
	TimeoutSeconds    int            `json:"timeout_seconds"     validate:"gte=0"`
}

// ToModel converts the request into a definition. Definitions are enabled unless stated.
func (r DefinitionRequest) ToModel() *models.WorkflowDefinition {
	steps := make([]models.Step, 0, len(r.Steps))
	for _, step := range r.Steps {
		steps = append(steps, models.Step{
			Name:   step.Name,
			Action: models.ActionType(step.Action),
			Config: step.Config,
		})
	}

	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}

	return &models.WorkflowDefinition{
		Name:              r.Name,
		Description:       r.Description,
		TriggerEvent:      r.TriggerEvent,
		TriggerConditions: r.TriggerConditions,
		Steps:             steps,
		Enabled:           enabled,
		MaxRetries:        r.MaxRetries,
		RetryDelaySeconds: r.RetryDelaySeconds,
		TimeoutSeconds:    r.TimeoutSeconds,
	}
}

// EnabledRequest toggles a definition or trigger binding.
type EnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// BindTriggerRequest binds a business event to a definition. An empty event name uses the
// definition's trigger_event.
type BindTriggerRequest struct {
	EventName string `json:"event_name"`
	Priority  int    `json:"priority"`
}

// TriggerEventRequest reports a business event directly over HTTP.
type TriggerEventRequest struct {
	EventName  string         `json:"event_name"  validate:"required"`
	EntityType string         `json:"entity_type" validate:"required"`
	EntityID   string         `json:"entity_id"   validate:"required"`
	Context    map[string]any `json:"context"`
}

// TriggerEventResponse lists the instances created for an event.
type TriggerEventResponse struct {
	Instances []*models.WorkflowInstance `json:"instances"`
}

// ControlResponse reports the effect of a cancel, pause or resume request.
type ControlResponse struct {
	InstanceID string                `json:"instance_id"`
	Applied    bool                  `json:"applied"`
	Status     models.InstanceStatus `json:"status"`
}

// ActionResponse describes a registered action handler.
type ActionResponse struct {
	Type   models.ActionType `json:"type"`
	Schema map[string]any    `json:"schema"`
}

// StatusResponse is the instance plus its step log trail.
type StatusResponse = workflow.WorkflowStatus
