package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseAndResumeWorkflow(t *testing.T) {
	t.Parallel()

	sendSMS := &fakeHandler{action: models.ActionSendSMS}
	env := newTestEnv(t, sendSMS)
	env.define(t, "appointment.booked", &models.WorkflowDefinition{
		Name: "Appointment reminder",
		Steps: steps(
			step("wait", models.ActionDelay, map[string]any{"duration": "1h"}),
			step("remind", models.ActionSendSMS, map[string]any{"template": "appointment_reminder"}),
		),
	}, 0)

	instance := env.trigger(t, "appointment.booked", map[string]any{"phone": "+15550001"})

	result, err := env.engine.ExecuteWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	require.True(t, result.Delayed)

	paused, err := env.engine.PauseWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.True(t, paused)

	// Pausing twice has no effect.
	paused, err = env.engine.PauseWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.False(t, paused)

	// The delayed job fires while paused.
	env.clock.Advance(2 * time.Hour)

	result, err = env.engine.ExecuteWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPaused, result.Status)
	assert.Equal(t, 0, sendSMS.Calls())
	assert.Equal(t, 1, env.instance(t, instance.ID).CurrentStep)

	resumed, err := env.engine.ResumeWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Len(t, env.enqueuedRunAts(instance.ID), 3)

	result, err = env.engine.ExecuteWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, result.Status)
	assert.Equal(t, 1, sendSMS.Calls())
}

func TestResumeWorkflow_HonorsPendingDelay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeHandler{action: models.ActionSendSMS})
	env.define(t, "appointment.booked", &models.WorkflowDefinition{
		Name: "Reminder",
		Steps: steps(
			step("wait", models.ActionDelay, map[string]any{"duration": "1d"}),
			step("remind", models.ActionSendSMS, nil),
		),
	}, 0)

	instance := env.trigger(t, "appointment.booked", nil)

	_, err := env.engine.ExecuteWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)

	_, err = env.engine.PauseWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)

	_, err = env.engine.ResumeWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)

	stored := env.instance(t, instance.ID)
	runAts := env.enqueuedRunAts(instance.ID)
	require.Len(t, runAts, 3)
	assert.WithinDuration(t, *stored.NextStepAt, runAts[2], time.Second)
}

func TestCancelWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(t *testing.T, env *testEnv, id string)
		applied bool
	}{
		{
			name:    "pending",
			prepare: func(*testing.T, *testEnv, string) {},
			applied: true,
		},
		{
			name: "running",
			prepare: func(t *testing.T, env *testEnv, id string) {
				t.Helper()

				_, err := env.engine.ExecuteWorkflow(t.Context(), id)
				require.NoError(t, err)
			},
			applied: true,
		},
		{
			name: "paused",
			prepare: func(t *testing.T, env *testEnv, id string) {
				t.Helper()

				_, err := env.engine.ExecuteWorkflow(t.Context(), id)
				require.NoError(t, err)

				_, err = env.engine.PauseWorkflow(t.Context(), id)
				require.NoError(t, err)
			},
			applied: false,
		},
		{
			name: "already cancelled",
			prepare: func(t *testing.T, env *testEnv, id string) {
				t.Helper()

				_, err := env.engine.CancelWorkflow(t.Context(), id)
				require.NoError(t, err)
			},
			applied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.define(t, "job.completed", &models.WorkflowDefinition{
				Name:  "Cancellable",
				Steps: steps(step("wait", models.ActionDelay, map[string]any{"duration": "1w"})),
			}, 0)

			instance := env.trigger(t, "job.completed", nil)
			tt.prepare(t, env, instance.ID)

			applied, err := env.engine.CancelWorkflow(t.Context(), instance.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, applied)
		})
	}
}

func TestCancelWorkflow_StopsAtNextStepBoundary(t *testing.T) {
	t.Parallel()

	var env *testEnv

	var instanceID string

	cancelling := &fakeHandler{action: models.ActionAPICall, fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		_, err := env.engine.CancelWorkflow(ctx, instanceID)

		return map[string]any{"cancelled": true}, err
	}}
	never := &fakeHandler{action: models.ActionSendEmail}

	env = newTestEnv(t, cancelling, never)
	env.define(t, "job.completed", &models.WorkflowDefinition{
		Name:  "Cancelled mid-run",
		Steps: steps(step("call", models.ActionAPICall, nil), step("email", models.ActionSendEmail, nil)),
	}, 0)

	instanceID = env.trigger(t, "job.completed", nil).ID

	result, err := env.engine.ExecuteWorkflow(t.Context(), instanceID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCancelled, result.Status)
	assert.Equal(t, 0, never.Calls())

	stored := env.instance(t, instanceID)
	assert.Equal(t, models.InstanceStatusCancelled, stored.Status)
	assert.Equal(t, 1, stored.CurrentStep)
}

func TestControl_UnknownInstance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	_, err := env.engine.CancelWorkflow(t.Context(), "missing")
	require.ErrorIs(t, err, persistence.ErrInstanceNotFound)

	_, err = env.engine.ResumeWorkflow(t.Context(), "missing")
	require.ErrorIs(t, err, persistence.ErrInstanceNotFound)

	_, err = env.engine.GetWorkflowStatus(t.Context(), "missing")
	require.ErrorIs(t, err, persistence.ErrInstanceNotFound)
}

func TestGetWorkflowStatus_StepLogsInStepOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t,
		&fakeHandler{action: models.ActionAPICall},
		&fakeHandler{action: models.ActionUpdateStage},
	)
	env.define(t, "job.completed", &models.WorkflowDefinition{
		Name: "Three steps",
		Steps: steps(
			step("call", models.ActionAPICall, nil),
			step("stage", models.ActionUpdateStage, nil),
			step("check", models.ActionCondition, map[string]any{"field": "total", "operator": "gt", "value": 1000}),
			step("never", models.ActionAPICall, nil),
		),
	}, 0)

	instance := env.trigger(t, "job.completed", map[string]any{"total": 10})

	_, err := env.engine.ExecuteWorkflow(t.Context(), instance.ID)
	require.NoError(t, err)

	status, err := env.engine.GetWorkflowStatus(t.Context(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusCompleted, status.Instance.Status)
	require.Len(t, status.StepLogs, 3)

	for i, log := range status.StepLogs {
		assert.Equal(t, i, log.StepIndex)
		assert.Equal(t, 1, log.AttemptNumber)
		assert.NotNil(t, log.CompletedAt)
	}
}
