package condition

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	row map[string]any
	err error
}

func (s *stubSource) Fetch(_ context.Context, _, _ string) (map[string]any, error) {
	return s.row, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func step(config map[string]any) models.Step {
	return models.Step{Name: "check", Action: models.ActionCondition, Config: config}
}

func TestHandler_Execute(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"status":   "unpaid",
		"total":    250.0,
		"customer": map[string]any{"email": "ana@example.com", "tags": []any{"vip"}},
	}

	tests := []struct {
		name     string
		config   map[string]any
		expected bool
		actual   any
	}{
		{"equal", map[string]any{"field": "status", "operator": "eq", "value": "unpaid"}, true, "unpaid"},
		{"not equal", map[string]any{"field": "status", "operator": "eq", "value": "paid"}, false, "unpaid"},
		{"numeric greater", map[string]any{"field": "total", "operator": "gt", "value": 100}, true, 250.0},
		{"nested contains", map[string]any{"field": "customer.tags", "operator": "contains", "value": "vip"}, true, []any{"vip"}},
		{"suffix", map[string]any{"field": "customer.email", "operator": "ends_with", "value": "@example.com"}, true, "ana@example.com"},
		{"missing field is null", map[string]any{"field": "customer.phone", "operator": "is_null"}, true, nil},
	}

	handler := NewHandler(testLogger(), nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := handler.Execute(context.Background(), &models.WorkflowInstance{ID: "i-1"}, step(tt.config), data)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, result["conditionMet"])
			assert.Equal(t, tt.config["field"], result["field"])
			assert.Equal(t, tt.config["operator"], result["operator"])
			assert.Equal(t, tt.actual, result["actualValue"])
		})
	}
}

func TestHandler_Execute_InvalidConfig(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testLogger(), nil)

	_, err := handler.Execute(context.Background(), &models.WorkflowInstance{}, step(map[string]any{"field": "a", "operator": "approx"}), nil)
	require.Error(t, err)
	assert.True(t, actions.IsValidationError(err))

	_, err = handler.Execute(context.Background(), &models.WorkflowInstance{}, step(map[string]any{"operator": "eq"}), nil)
	require.Error(t, err)
	assert.True(t, actions.IsValidationError(err))
}

func TestHandler_Execute_Refresh(t *testing.T) {
	t.Parallel()

	source := &stubSource{row: map[string]any{"status": "paid"}}
	handler := NewHandler(testLogger(), source)
	instance := &models.WorkflowInstance{ID: "i-1", EntityType: entities.TypeInvoice, EntityID: "42"}

	result, err := handler.Execute(context.Background(), instance,
		step(map[string]any{"field": "status", "operator": "eq", "value": "unpaid", "refresh": true}),
		map[string]any{"status": "unpaid"})
	require.NoError(t, err)
	assert.Equal(t, false, result["conditionMet"])
	assert.Equal(t, "paid", result["actualValue"])

	result, err = handler.Execute(context.Background(), instance,
		step(map[string]any{"field": "entity.status", "operator": "eq", "value": "paid", "refresh": true}),
		map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, result["conditionMet"])
}

func TestHandler_Execute_RefreshFailure(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testLogger(), &stubSource{err: entities.ErrEntityNotFound})

	_, err := handler.Execute(context.Background(), &models.WorkflowInstance{EntityType: "job", EntityID: "1"},
		step(map[string]any{"field": "status", "operator": "is_not_null", "refresh": true}), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrEntityNotFound))
}
