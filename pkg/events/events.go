// Package events defines the messages exchanged over the event bus: business events that
// trigger workflows and lifecycle notifications about workflow instances.
package events

import (
	"errors"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

type EventType string

// Topics.
const (
	BusinessEventsTopic = "fieldservice.business-events"
	LifecycleTopic      = "fieldservice.workflow-lifecycle"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// BusinessEventType wraps an event raised by the field-service platform, e.g. job.completed.
	BusinessEventType EventType = "business.event"

	// Workflow instance lifecycle events.
	InstanceCreatedEvent   EventType = "workflow.instance.created"
	InstanceStartedEvent   EventType = "workflow.instance.started"
	InstanceDelayedEvent   EventType = "workflow.instance.delayed"
	InstanceCompletedEvent EventType = "workflow.instance.completed"
	InstanceFailedEvent    EventType = "workflow.instance.failed"
	InstanceCancelledEvent EventType = "workflow.instance.cancelled"
	InstancePausedEvent    EventType = "workflow.instance.paused"
	InstanceResumedEvent   EventType = "workflow.instance.resumed"
)

var ErrInvalidEvent = errors.New("invalid event")

// TopicFor returns the topic an event type is published on.
func TopicFor(eventType EventType) string {
	if eventType == BusinessEventType {
		return BusinessEventsTopic
	}

	return LifecycleTopic
}

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// BusinessEvent is the input of the trigger matcher.
type BusinessEvent struct {
	BaseEvent

	EventName  string         `json:"event_name"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Context    map[string]any `json:"context,omitempty"`
}

func (e BusinessEvent) GetType() EventType {
	return BusinessEventType
}

func (e BusinessEvent) Validate() error {
	switch {
	case e.EventName == "":
		return errors.Join(ErrInvalidEvent, errors.New("event_name is required"))
	case e.EntityType == "":
		return errors.Join(ErrInvalidEvent, errors.New("entity_type is required"))
	case e.EntityID == "":
		return errors.Join(ErrInvalidEvent, errors.New("entity_id is required"))
	}

	return nil
}

// InstanceEvent reports a workflow instance state change.
type InstanceEvent struct {
	BaseEvent

	InstanceID   string                `json:"instance_id"`
	DefinitionID string                `json:"definition_id"`
	EntityType   string                `json:"entity_type"`
	EntityID     string                `json:"entity_id"`
	Status       models.InstanceStatus `json:"status"`
	CurrentStep  int                   `json:"current_step"`
	NextStepAt   *time.Time            `json:"next_step_at,omitempty"`
	Error        string                `json:"error,omitempty"`
}

func (e InstanceEvent) GetType() EventType {
	return e.Type
}

// NewInstanceEvent snapshots instance into an event of the given type.
func NewInstanceEvent(id string, eventType EventType, instance *models.WorkflowInstance, at time.Time) *InstanceEvent {
	return &InstanceEvent{
		BaseEvent: BaseEvent{
			ID:        id,
			Type:      eventType,
			Timestamp: at.UTC(),
		},
		InstanceID:   instance.ID,
		DefinitionID: instance.DefinitionID,
		EntityType:   instance.EntityType,
		EntityID:     instance.EntityID,
		Status:       instance.Status,
		CurrentStep:  instance.CurrentStep,
		NextStepAt:   instance.NextStepAt,
		Error:        instance.ErrorMessage,
	}
}

// IsLifecycle reports whether eventType is a workflow instance lifecycle event.
func IsLifecycle(eventType EventType) bool {
	switch eventType {
	case InstanceCreatedEvent, InstanceStartedEvent, InstanceDelayedEvent, InstanceCompletedEvent,
		InstanceFailedEvent, InstanceCancelledEvent, InstancePausedEvent, InstanceResumedEvent:
		return true
	default:
		return false
	}
}
