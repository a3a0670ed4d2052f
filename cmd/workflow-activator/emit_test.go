package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/delay"
	"github.com/Lazi-Labs/lazi-sub001/pkg/channels/gochannel"
	"github.com/Lazi-Labs/lazi-sub001/pkg/eventbus"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/mocks"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence/file"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewBusinessEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		entityID   string
		rawContext string
		wantErr    error
	}{
		{"valid", "42", `{"total": 250}`, nil},
		{"empty context", "42", "", nil},
		{"missing entity", "", "{}", events.ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event, err := newBusinessEvent("evt-1", "job.completed", "job", tt.entityID, tt.rawContext, at)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, events.BusinessEventType, event.GetType())
			assert.Equal(t, at, event.Timestamp)
		})
	}

	_, err := newBusinessEvent("evt-1", "job.completed", "job", "42", `{"total":`, at)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid event context")
}

func TestEmit_PublishFailure(t *testing.T) {
	t.Parallel()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "job:42", mock.Anything).Return(errors.New("broker down"))

	event, err := newBusinessEvent("evt-1", "job.completed", "job", "42", "{}", time.Now())
	require.NoError(t, err)

	var out bytes.Buffer
	require.Error(t, emit(t.Context(), &out, bus, event))
	assert.Empty(t, out.String())
	bus.AssertExpectations(t)
}

func TestEmit_ActivatesWorkflow(t *testing.T) {
	t.Parallel()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.Register(delay.NewHandler())

	queue := &mocks.MockQueue{}
	queue.On("Enqueue", mock.Anything, jobs.QueueWorkflowExecutions, mock.Anything, mock.Anything).Return("job-1", nil)

	engine := workflow.NewEngine(logger, p, reg, queue)
	definitions := workflow.NewDefinitionService(logger, p, reg)

	definition, err := definitions.Create(t.Context(), &models.WorkflowDefinition{
		Name:         "Review request",
		TriggerEvent: "job.completed",
		Enabled:      true,
		Steps:        []models.Step{{Name: "wait", Action: models.ActionDelay, Config: map[string]any{"duration": "1d"}}},
	})
	require.NoError(t, err)

	_, err = definitions.BindTrigger(t.Context(), "job.completed", definition.ID, 0)
	require.NoError(t, err)

	pub, sub := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	bus := eventbus.NewWatermillEventBus(pub, sub, logger)

	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, workflow.NewActivator(engine, logger).Register(bus))
	require.NoError(t, bus.Subscribe(ctx))

	event, err := newBusinessEvent(bus.GenerateID(), "job.completed", "job", "42", `{"total": 250}`, time.Now())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, emit(ctx, &out, bus, event))
	assert.Contains(t, out.String(), "Published job.completed for job 42")

	require.Eventually(t, func() bool {
		instances, err := engine.ListInstances(ctx, persistence.InstanceFilter{EntityType: "job", EntityID: "42"})

		return err == nil && len(instances) == 1
	}, 5*time.Second, 50*time.Millisecond)
}
