package workflow

import (
	"context"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/conditions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/otelhelper"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
)

// TriggerWorkflows creates one pending instance for every enabled definition bound to eventName
// whose trigger conditions accept eventContext, and enqueues its execution. Calls are not
// idempotent.
func (e *Engine) TriggerWorkflows(
	ctx context.Context,
	eventName, entityType, entityID string,
	eventContext map[string]any,
) ([]*models.WorkflowInstance, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.trigger",
		attribute.String(otelhelper.EventNameKey, eventName),
		attribute.String(otelhelper.EntityTypeKey, entityType),
		attribute.String(otelhelper.EntityIDKey, entityID),
	)
	defer span.End()

	logger := e.logger.With("event_name", eventName, "entity_type", entityType, "entity_id", entityID)

	bindings, err := e.persistence.Triggers().EnabledForEvent(ctx, eventName)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load triggers for %s: %w", eventName, err)
	}

	created := []*models.WorkflowInstance{}
	seen := make(map[string]bool, len(bindings))

	for _, binding := range bindings {
		if seen[binding.DefinitionID] {
			continue
		}

		seen[binding.DefinitionID] = true

		definition, err := e.persistence.Definitions().GetByID(ctx, binding.DefinitionID)
		if err != nil {
			if persistence.IsDefinitionNotFound(err) {
				logger.WarnContext(ctx, "Trigger references a missing definition",
					"trigger_id", binding.ID, "definition_id", binding.DefinitionID)

				continue
			}

			otelhelper.SetError(span, err)

			return created, fmt.Errorf("failed to load definition %s: %w", binding.DefinitionID, err)
		}

		if !definition.Enabled {
			continue
		}

		matched, err := conditions.MatchTrigger(definition.TriggerConditions, eventContext)
		if err != nil {
			logger.WarnContext(ctx, "Skipping definition with invalid trigger conditions",
				"definition_id", definition.ID, "error", err)

			continue
		}

		if !matched {
			logger.DebugContext(ctx, "Trigger conditions not met", "definition_id", definition.ID)

			continue
		}

		instance, err := e.instantiate(ctx, definition, entityType, entityID, eventContext)
		if err != nil {
			otelhelper.SetError(span, err)

			return created, err
		}

		created = append(created, instance)
	}

	logger.InfoContext(ctx, "Triggered workflows", "candidates", len(bindings), "created", len(created))

	return created, nil
}

func (e *Engine) instantiate(
	ctx context.Context,
	definition *models.WorkflowDefinition,
	entityType, entityID string,
	eventContext map[string]any,
) (*models.WorkflowInstance, error) {
	snapshot, _ := cloneValue(eventContext).(map[string]any)
	if snapshot == nil {
		snapshot = map[string]any{}
	}

	instance := &models.WorkflowInstance{
		DefinitionID:      definition.ID,
		DefinitionVersion: definition.Version,
		EntityType:        entityType,
		EntityID:          entityID,
		Status:            models.InstanceStatusPending,
		Context:           snapshot,
		CurrentStep:       0,
		StepResults:       []models.StepResult{},
		CreatedAt:         e.now().UTC(),
	}

	err := e.persistence.Instances().Create(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance of %s: %w", definition.ID, err)
	}

	e.publish(ctx, events.InstanceCreatedEvent, instance)

	jobID, err := e.enqueueExecution(ctx, instance, e.now())
	if err != nil {
		// The instance is durable; the sweeper enqueues it once the grace period passes.
		e.logger.ErrorContext(ctx, "Failed to enqueue execution job",
			"instance_id", instance.ID, "error", err)
	} else {
		e.logger.InfoContext(ctx, "Workflow instance created",
			"instance_id", instance.ID,
			"definition_id", definition.ID,
			"definition_version", definition.Version,
			"job_id", jobID)
	}

	return instance, nil
}

// cloneValue deep-copies the maps and slices of a decoded JSON document.
func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = cloneValue(item)
		}

		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return value
	}
}
