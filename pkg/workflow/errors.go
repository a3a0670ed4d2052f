package workflow

import (
	"errors"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

var (
	// ErrInstanceLocked is returned when another worker holds the instance execution lease.
	ErrInstanceLocked = errors.New("workflow instance is locked by another worker")

	ErrUnknownAction     = errors.New("unknown action type")
	ErrStepTimeout       = errors.New("step timed out")
	ErrHandlerPanic      = errors.New("action handler panicked")
	ErrInvalidDefinition = errors.New("invalid workflow definition")
)

// UnknownActionError is the failure of a step whose action has no registered handler.
type UnknownActionError struct {
	Action models.ActionType
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("Unknown action type: %s", e.Action)
}

func (e *UnknownActionError) Is(target error) bool {
	return target == ErrUnknownAction
}

// DefinitionValidationError lists every problem found in a definition.
type DefinitionValidationError struct {
	Problems []string
}

func (e *DefinitionValidationError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", ErrInvalidDefinition, e.Problems[0])
	}

	return fmt.Sprintf("%s: %d problems: %v", ErrInvalidDefinition, len(e.Problems), e.Problems)
}

func (e *DefinitionValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

// IsInvalidDefinition reports whether err was caused by definition validation.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

// IsInstanceLocked reports whether err means the instance is being executed elsewhere.
func IsInstanceLocked(err error) bool {
	return errors.Is(err, ErrInstanceLocked)
}
