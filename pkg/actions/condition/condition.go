// Package condition implements the condition step, which gates the rest of a workflow on a
// field comparison.
package condition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/conditions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

type Config struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	// Refresh re-reads the entity row before evaluating so the check sees current data.
	Refresh bool `json:"refresh"`
}

type Handler struct {
	logger *slog.Logger
	source entities.Source
}

// NewHandler creates a condition handler. source may be nil, in which case refresh is ignored.
func NewHandler(logger *slog.Logger, source entities.Source) *Handler {
	return &Handler{
		logger: logger.With("module", "condition_action"),
		source: source,
	}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionCondition
}

func (h *Handler) Schema() map[string]any {
	operators := make([]string, 0, len(conditions.Operators()))
	for _, op := range conditions.Operators() {
		operators = append(operators, string(op))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"field": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Dot-path into the instance context, e.g. customer.balance",
			},
			"operator": map[string]any{
				"type": "string",
				"enum": operators,
			},
			"value": map[string]any{
				"description": "Expected value compared with the field",
			},
			"refresh": map[string]any{
				"type":    "boolean",
				"default": false,
			},
		},
		"required": []string{"field", "operator"},
	}
}

func (h *Handler) Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error) {
	var cfg Config

	err := actions.DecodeConfig(step, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Field == "" {
		return nil, actions.NewValidationError(models.ActionCondition, "field", "is required")
	}

	op, err := conditions.ParseOperator(cfg.Operator)
	if err != nil {
		return nil, actions.NewValidationError(models.ActionCondition, "operator", err.Error())
	}

	if cfg.Refresh {
		data, err = h.refresh(ctx, instance, data)
		if err != nil {
			return nil, err
		}
	}

	actual, _ := conditions.Lookup(data, cfg.Field)
	met := op.Evaluate(actual, cfg.Value)

	h.logger.DebugContext(ctx, "Evaluated condition",
		"instance_id", instance.ID,
		"field", cfg.Field,
		"operator", op,
		"met", met)

	return map[string]any{
		"conditionMet":  met,
		"field":         cfg.Field,
		"operator":      string(op),
		"expectedValue": cfg.Value,
		"actualValue":   actual,
	}, nil
}

// refresh overlays the live entity row on the context and exposes it under "entity".
func (h *Handler) refresh(ctx context.Context, instance *models.WorkflowInstance, data map[string]any) (map[string]any, error) {
	if h.source == nil {
		h.logger.WarnContext(ctx, "Condition refresh requested without an entity source", "instance_id", instance.ID)

		return data, nil
	}

	row, err := h.source.Fetch(ctx, instance.EntityType, instance.EntityID)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh %s %s: %w", instance.EntityType, instance.EntityID, err)
	}

	refreshed := actions.Merge(data, row)
	refreshed["entity"] = row

	return refreshed, nil
}
