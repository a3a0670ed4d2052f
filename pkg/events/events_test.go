package events

import (
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestBusinessEvent_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event BusinessEvent
		valid bool
	}{
		{"complete", BusinessEvent{EventName: "job.completed", EntityType: "job", EntityID: "1"}, true},
		{"missing name", BusinessEvent{EntityType: "job", EntityID: "1"}, false},
		{"missing entity type", BusinessEvent{EventName: "job.completed", EntityID: "1"}, false},
		{"missing entity id", BusinessEvent{EventName: "job.completed", EntityType: "job"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.event.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			}
		})
	}
}

func TestNewInstanceEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	instance := &models.WorkflowInstance{
		ID: "i-1", DefinitionID: "d-1", EntityType: "job", EntityID: "7",
		Status: models.InstanceStatusFailed, CurrentStep: 2, ErrorMessage: "boom",
	}

	event := NewInstanceEvent("e-1", InstanceFailedEvent, instance, at)

	assert.Equal(t, InstanceFailedEvent, event.GetType())
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.Equal(t, "boom", event.Error)
	assert.Equal(t, 2, event.CurrentStep)
	assert.Equal(t, "i-1", event.InstanceID)
}

func TestTopicFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BusinessEventsTopic, TopicFor(BusinessEventType))
	assert.Equal(t, LifecycleTopic, TopicFor(InstanceCreatedEvent))
	assert.True(t, IsLifecycle(InstanceDelayedEvent))
	assert.False(t, IsLifecycle(BusinessEventType))
}
