// Package registry holds the action handlers available to the workflow engine.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

var (
	ErrActionNotRegistered = errors.New("action type not registered")
	ErrInvalidStepConfig   = errors.New("invalid step config")
)

// Registry maps action types to handlers. It is built once at startup and passed to the engine.
type Registry struct {
	logger   *slog.Logger
	handlers map[models.ActionType]protocol.ActionHandler
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:   log.With("module", "registry"),
		handlers: make(map[models.ActionType]protocol.ActionHandler),
	}
}

// Register adds a handler, replacing any previous handler for the same type.
func (r *Registry) Register(handler protocol.ActionHandler) {
	if _, exists := r.handlers[handler.Type()]; exists {
		r.logger.Warn("Replacing registered action handler", "action", handler.Type())
	}

	r.handlers[handler.Type()] = handler
}

func (r *Registry) Handler(actionType models.ActionType) (protocol.ActionHandler, bool) {
	handler, ok := r.handlers[actionType]

	return handler, ok
}

// Types returns the registered action types in name order.
func (r *Registry) Types() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.handlers))
	for actionType := range r.handlers {
		types = append(types, actionType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// ValidateStep checks that the step's action is registered and its config matches the handler schema.
func (r *Registry) ValidateStep(step models.Step) error {
	handler, ok := r.handlers[step.Action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrActionNotRegistered, step.Action)
	}

	config := step.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(handler.Schema()), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("failed to validate config of step %q: %w", step.Name, err)
	}

	if !result.Valid() {
		var problems []string
		for _, resultError := range result.Errors() {
			problems = append(problems, resultError.String())
		}

		return fmt.Errorf("%w: step %q: %s", ErrInvalidStepConfig, step.Name, strings.Join(problems, "; "))
	}

	return nil
}

// HealthCheck reports whether any handler is registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.handlers) == 0 {
		return "no action handlers registered", false
	}

	return fmt.Sprintf("%d action handlers registered", len(r.handlers)), true
}
