package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDefinitionNotFound indicates a definition (or the requested version) does not exist.
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrTriggerNotFound indicates a trigger binding was not found by the given identifier.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrInstanceNotFound indicates a workflow instance was not found by the given identifier.
	ErrInstanceNotFound = errors.New("workflow instance not found")

	// ErrInstanceAlreadyExists indicates an instance with the same identifier already exists.
	ErrInstanceAlreadyExists = errors.New("workflow instance already exists")

	// ErrStepLogNotFound indicates no open step log matched.
	ErrStepLogNotFound = errors.New("step log not found")
)

// DefinitionError wraps definition-related errors with additional context.
type DefinitionError struct {
	Op           string // Operation being performed (e.g., "GetByID", "Save")
	DefinitionID string
	Version      int // Version if applicable
	Err          error
}

func (e *DefinitionError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("%s operation failed for definition %s version %d: %v", e.Op, e.DefinitionID, e.Version, e.Err)
	}

	return fmt.Sprintf("%s operation failed for definition %s: %v", e.Op, e.DefinitionID, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for definition errors.
func (e *DefinitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDefinitionError creates a new definition error with context.
func NewDefinitionError(op, definitionID string, err error) *DefinitionError {
	return &DefinitionError{Op: op, DefinitionID: definitionID, Err: err}
}

// NewDefinitionVersionError creates a definition error for a specific version.
func NewDefinitionVersionError(op, definitionID string, version int, err error) *DefinitionError {
	return &DefinitionError{Op: op, DefinitionID: definitionID, Version: version, Err: err}
}

// InstanceError wraps instance-related errors with additional context.
type InstanceError struct {
	Op         string
	InstanceID string
	Err        error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{Op: op, InstanceID: instanceID, Err: err}
}

// IsDefinitionNotFound checks if an error indicates a definition was not found.
func IsDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound)
}

// IsTriggerNotFound checks if an error indicates a trigger was not found.
func IsTriggerNotFound(err error) bool {
	return errors.Is(err, ErrTriggerNotFound)
}

// IsInstanceNotFound checks if an error indicates an instance was not found.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

// IsNotFound checks for any of the not-found sentinels.
func IsNotFound(err error) bool {
	return IsDefinitionNotFound(err) || IsTriggerNotFound(err) || IsInstanceNotFound(err) || errors.Is(err, ErrStepLogNotFound)
}
