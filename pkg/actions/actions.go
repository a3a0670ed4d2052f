// Package actions holds helpers shared by the built-in step action handlers.
package actions

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

var ErrInvalidConfig = errors.New("invalid step config")

// ValidationError reports a missing or malformed step config field.
type ValidationError struct {
	Action  models.ActionType
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Action, e.Message)
	}

	return fmt.Sprintf("%s: %s %s", e.Action, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

func NewValidationError(action models.ActionType, field, message string) *ValidationError {
	return &ValidationError{Action: action, Field: field, Message: message}
}

// IsValidationError checks if an error came from a malformed step config.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// DecodeConfig copies a step's free-form config into a typed struct through its JSON tags.
func DecodeConfig(step models.Step, target any) error {
	config := step.Config
	if config == nil {
		config = map[string]any{}
	}

	data, err := json.Marshal(config)
	if err != nil {
		return NewValidationError(step.Action, "", "config is not serializable: "+err.Error())
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return NewValidationError(step.Action, "", "config does not match the expected shape: "+err.Error())
	}

	return nil
}

// Merge returns a shallow copy of base with every key of overlay set on top.
func Merge(base map[string]any, overlay map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}

	for k, v := range overlay {
		merged[k] = v
	}

	return merged
}
