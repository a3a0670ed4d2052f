package registry_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	actionType models.ActionType
}

func (f fakeHandler) Type() models.ActionType { return f.actionType }

func (f fakeHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{"type": "string", "pattern": `^\d+[smhdw]$`},
		},
		"required": []string{"duration"},
	}
}

func (f fakeHandler) Execute(context.Context, *models.WorkflowInstance, models.Step, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())

	_, healthy := reg.HealthCheck()
	assert.False(t, healthy)

	reg.Register(fakeHandler{actionType: "delay"})
	reg.Register(fakeHandler{actionType: "api_call"})

	handler, ok := reg.Handler("delay")
	require.True(t, ok)
	assert.Equal(t, models.ActionType("delay"), handler.Type())

	_, ok = reg.Handler("send_fax")
	assert.False(t, ok)

	assert.Equal(t, []models.ActionType{"api_call", "delay"}, reg.Types())

	message, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.Equal(t, "2 action handlers registered", message)
}

func TestRegistry_ValidateStep(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry(slog.Default())
	reg.Register(fakeHandler{actionType: "delay"})

	tests := []struct {
		name    string
		step    models.Step
		wantErr error
	}{
		{
			name: "valid",
			step: models.Step{Name: "wait", Action: "delay", Config: map[string]any{"duration": "2h"}},
		},
		{
			name:    "unregistered action",
			step:    models.Step{Name: "fax", Action: "send_fax"},
			wantErr: registry.ErrActionNotRegistered,
		},
		{
			name:    "missing required config",
			step:    models.Step{Name: "wait", Action: "delay"},
			wantErr: registry.ErrInvalidStepConfig,
		},
		{
			name:    "pattern mismatch",
			step:    models.Step{Name: "wait", Action: "delay", Config: map[string]any{"duration": "soon"}},
			wantErr: registry.ErrInvalidStepConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := reg.ValidateStep(tt.step)
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
