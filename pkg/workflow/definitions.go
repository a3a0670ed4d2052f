package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/conditions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/go-playground/validator/v10"
)

// DefinitionService validates and stores workflow definitions and their trigger bindings.
// Every saved change produces a new definition version; running instances keep the version they
// were created with.
type DefinitionService struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
}

func NewDefinitionService(logger *slog.Logger, persistence persistence.Persistence, registry *registry.Registry) *DefinitionService {
	return &DefinitionService{
		logger:      logger.With("module", "definition_service"),
		persistence: persistence,
		registry:    registry,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks struct constraints, that every step action is registered with a valid config,
// that step names are unique and that trigger conditions only use supported operators.
func (s *DefinitionService) Validate(definition *models.WorkflowDefinition) error {
	if definition == nil {
		return &DefinitionValidationError{Problems: []string{"definition is required"}}
	}

	var problems []string

	err := s.validate.Struct(definition)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("failed to validate definition: %w", err)
		}

		for _, fieldError := range validationErrors {
			problems = append(problems, fmt.Sprintf("%s failed on %q", fieldError.Namespace(), fieldError.Tag()))
		}
	}

	names := make(map[string]bool, len(definition.Steps))

	for i, step := range definition.Steps {
		if step.Name != "" && names[step.Name] {
			problems = append(problems, fmt.Sprintf("step %d: duplicate step name %q", i, step.Name))
		}

		names[step.Name] = true

		if step.Action == "" {
			continue
		}

		err := s.registry.ValidateStep(step)
		if err != nil {
			problems = append(problems, fmt.Sprintf("step %d: %s", i, err))
		}
	}

	err = conditions.ValidateTrigger(definition.TriggerConditions)
	if err != nil {
		problems = append(problems, "trigger_conditions: "+err.Error())
	}

	if len(problems) > 0 {
		return &DefinitionValidationError{Problems: problems}
	}

	return nil
}

// Create validates and stores a new definition at version 1.
func (s *DefinitionService) Create(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	err := s.Validate(definition)
	if err != nil {
		return nil, err
	}

	definition.Version = 1

	err = s.persistence.Definitions().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to save definition: %w", err)
	}

	s.logger.InfoContext(ctx, "Definition created", "definition_id", definition.ID, "name", definition.Name)

	return definition, nil
}

// Update validates definition and stores it as the next version of id.
func (s *DefinitionService) Update(ctx context.Context, id string, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	current, err := s.persistence.Definitions().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.Validate(definition)
	if err != nil {
		return nil, err
	}

	definition.ID = current.ID
	definition.Version = current.Version + 1
	definition.CreatedAt = current.CreatedAt

	err = s.persistence.Definitions().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to save definition %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Definition updated", "definition_id", id, "version", definition.Version)

	return definition, nil
}

// SetEnabled toggles whether the definition is matched by new events. It creates a new version.
func (s *DefinitionService) SetEnabled(ctx context.Context, id string, enabled bool) (*models.WorkflowDefinition, error) {
	current, err := s.persistence.Definitions().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.Enabled == enabled {
		return current, nil
	}

	next := *current
	next.Enabled = enabled

	return s.Update(ctx, id, &next)
}

func (s *DefinitionService) Get(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return s.persistence.Definitions().GetByID(ctx, id)
}

// GetVersion returns the immutable snapshot of one definition version.
func (s *DefinitionService) GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	return s.persistence.Definitions().GetVersion(ctx, id, version)
}

func (s *DefinitionService) List(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return s.persistence.Definitions().GetAll(ctx)
}

// BindTrigger makes eventName instantiate the definition. Higher priority is matched first.
func (s *DefinitionService) BindTrigger(ctx context.Context, eventName, definitionID string, priority int) (*models.Trigger, error) {
	_, err := s.persistence.Definitions().GetByID(ctx, definitionID)
	if err != nil {
		return nil, err
	}

	trigger := &models.Trigger{
		EventName:    eventName,
		DefinitionID: definitionID,
		Enabled:      true,
		Priority:     priority,
	}

	err = s.validate.Struct(trigger)
	if err != nil {
		return nil, &DefinitionValidationError{Problems: []string{err.Error()}}
	}

	err = s.persistence.Triggers().Save(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to save trigger: %w", err)
	}

	s.logger.InfoContext(ctx, "Trigger bound",
		"trigger_id", trigger.ID,
		"event_name", eventName,
		"definition_id", definitionID,
		"priority", priority)

	return trigger, nil
}

// SetTriggerEnabled enables or disables one binding.
func (s *DefinitionService) SetTriggerEnabled(ctx context.Context, triggerID string, enabled bool) (*models.Trigger, error) {
	trigger, err := s.persistence.Triggers().GetByID(ctx, triggerID)
	if err != nil {
		return nil, err
	}

	trigger.Enabled = enabled

	err = s.persistence.Triggers().Save(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to save trigger %s: %w", triggerID, err)
	}

	return trigger, nil
}

func (s *DefinitionService) Triggers(ctx context.Context, definitionID string) ([]*models.Trigger, error) {
	return s.persistence.Triggers().ByDefinition(ctx, definitionID)
}
