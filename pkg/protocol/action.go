// Package protocol defines the contract between the workflow engine and step action handlers.
package protocol

import (
	"context"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

// ActionHandler implements one step action type's side effect and result contract.
type ActionHandler interface {
	// Type is the action name steps refer to, e.g. "delay".
	Type() models.ActionType

	// Schema is the JSON Schema a step's config must satisfy.
	Schema() map[string]any

	// Execute runs the step. data is the instance context the step is evaluated against.
	Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error)
}
