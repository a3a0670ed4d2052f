// Package entities reads live field-service records (customers, jobs, invoices, ...) and records
// workflow-driven stage changes against them.
package entities

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	TypeCustomer = "customer"
	TypeJob      = "job"
	TypeInvoice  = "invoice"
	TypeEstimate = "estimate"
	TypeLocation = "location"
)

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrEntityNotFound    = errors.New("entity not found")
)

// tables maps entity types to master tables keyed by the externally assigned st_id.
var tables = map[string]string{
	TypeCustomer: "master.customers",
	TypeJob:      "master.jobs",
	TypeInvoice:  "master.invoices",
	TypeEstimate: "master.estimates",
	TypeLocation: "master.locations",
}

// Table returns the table backing entityType.
func Table(entityType string) (string, error) {
	table, ok := tables[entityType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntityType, entityType)
	}

	return table, nil
}

// Source fetches the live row of an entity as a field map.
type Source interface {
	Fetch(ctx context.Context, entityType, entityID string) (map[string]any, error)
}

// StageUpdate moves an entity to a pipeline stage.
type StageUpdate struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Stage      string    `json:"stage,omitempty"`
	StageID    string    `json:"stage_id,omitempty"`
	InstanceID string    `json:"instance_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StageWriter persists stage changes.
type StageWriter interface {
	UpdateStage(ctx context.Context, update StageUpdate) error
}

// Store is both a Source and a StageWriter.
type Store interface {
	Source
	StageWriter
	Close(ctx context.Context) error
}

// CustomerOf returns the customer row related to an entity: the entity itself for customers,
// otherwise the customer referenced by the entity's customer_id.
func CustomerOf(ctx context.Context, source Source, entityType string, entity map[string]any) (map[string]any, error) {
	if entityType == TypeCustomer {
		return entity, nil
	}

	customerID := fmt.Sprint(entity["customer_id"])
	if entity["customer_id"] == nil || customerID == "" {
		return nil, fmt.Errorf("%w: %s has no customer_id", ErrEntityNotFound, entityType)
	}

	return source.Fetch(ctx, TypeCustomer, customerID)
}
