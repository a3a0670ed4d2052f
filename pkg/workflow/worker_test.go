package workflow

import (
	"log/slog"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_HandleJob(t *testing.T) {
	t.Parallel()

	apiCall := &fakeHandler{action: models.ActionAPICall}
	env := newTestEnv(t, apiCall)
	env.define(t, "job.completed", &models.WorkflowDefinition{
		Name:  "Worker test",
		Steps: steps(step("call", models.ActionAPICall, nil)),
	}, 0)

	worker := NewWorker(env.engine, nil, slog.Default())

	t.Run("runs the instance", func(t *testing.T) {
		instance := env.trigger(t, "job.completed", nil)
		job := jobs.NewJob(jobs.QueueWorkflowExecutions, jobs.ExecutionPayload(instance.ID, instance.DefinitionID), time.Now())

		require.NoError(t, worker.HandleJob(t.Context(), job))
		assert.Equal(t, models.InstanceStatusCompleted, env.instance(t, instance.ID).Status)
	})

	t.Run("drops jobs for leased instances", func(t *testing.T) {
		instance := env.trigger(t, "job.completed", nil)

		now := env.clock.Now()
		_, err := env.persistence.Instances().Claim(t.Context(), instance.ID, "other", now.Add(time.Minute), now)
		require.NoError(t, err)

		job := jobs.NewJob(jobs.QueueWorkflowExecutions, jobs.ExecutionPayload(instance.ID, instance.DefinitionID), time.Now())
		require.NoError(t, worker.HandleJob(t.Context(), job))
		assert.Equal(t, 0, env.instance(t, instance.ID).CurrentStep)
	})

	t.Run("drops jobs for unknown instances", func(t *testing.T) {
		job := jobs.NewJob(jobs.QueueWorkflowExecutions, jobs.ExecutionPayload("missing", "def"), time.Now())
		require.NoError(t, worker.HandleJob(t.Context(), job))
	})

	t.Run("drops jobs without instance", func(t *testing.T) {
		job := jobs.NewJob(jobs.QueueWorkflowExecutions, map[string]any{}, time.Now())
		require.NoError(t, worker.HandleJob(t.Context(), job))
	})
}

func TestActivator_HandleBusinessEvent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.define(t, "job.completed", &models.WorkflowDefinition{
		Name:              "Activated",
		TriggerConditions: models.TriggerConditions{"job.total": map[string]any{"$gte": 100}},
		Steps:             steps(step("wait", models.ActionDelay, map[string]any{"duration": "1h"})),
	}, 0)

	activator := NewActivator(env.engine, slog.Default())

	err := activator.HandleBusinessEvent(t.Context(), &events.BusinessEvent{
		EventName:  "job.completed",
		EntityType: "job",
		EntityID:   "77",
		Context:    map[string]any{"job": map[string]any{"total": 250}},
	})
	require.NoError(t, err)

	// Invalid events are acknowledged without creating instances.
	require.NoError(t, activator.HandleBusinessEvent(t.Context(), &events.BusinessEvent{EventName: "job.completed"}))
	require.NoError(t, activator.HandleBusinessEvent(t.Context(), "not an event"))

	instances, err := env.engine.ListInstances(t.Context(), persistence.InstanceFilter{EntityType: "job", EntityID: "77"})
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, models.InstanceStatusPending, instances[0].Status)
}
