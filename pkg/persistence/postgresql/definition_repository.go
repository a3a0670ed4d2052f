package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const definitionColumns = `
			id
		  , name
		  , description
		  , version
		  , trigger_event
		  , trigger_conditions
		  , steps
		  , enabled
		  , max_retries
		  , retry_delay_seconds
		  , timeout_seconds
		  , created_at
		  , updated_at`

// DefinitionRepository handles workflow definition database operations.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDefinitionRepository(db *sql.DB, logger *slog.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

// Save upserts the definition head and records its version snapshot. An existing snapshot for
// the same version is left untouched.
func (r *DefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	now := time.Now().UTC()

	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	if definition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate definition ID: %w", err)
		}

		definition.ID = id.String()
	}

	if definition.Version == 0 {
		definition.Version = 1
	}

	conditionsJSON, err := json.Marshal(nonNilConditions(definition.TriggerConditions))
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}

	stepsJSON, err := json.Marshal(definition.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	snapshotJSON, err := json.Marshal(definition)
	if err != nil {
		return fmt.Errorf("failed to marshal definition snapshot: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_definitions (id, name, description, version, trigger_event, trigger_conditions,
			steps, enabled, max_retries, retry_delay_seconds, timeout_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			version = EXCLUDED.version,
			trigger_event = EXCLUDED.trigger_event,
			trigger_conditions = EXCLUDED.trigger_conditions,
			steps = EXCLUDED.steps,
			enabled = EXCLUDED.enabled,
			max_retries = EXCLUDED.max_retries,
			retry_delay_seconds = EXCLUDED.retry_delay_seconds,
			timeout_seconds = EXCLUDED.timeout_seconds,
			updated_at = EXCLUDED.updated_at
	`,
		definition.ID,
		definition.Name,
		definition.Description,
		definition.Version,
		definition.TriggerEvent,
		conditionsJSON,
		stepsJSON,
		definition.Enabled,
		definition.MaxRetries,
		definition.RetryDelaySeconds,
		definition.TimeoutSeconds,
		definition.CreatedAt,
		definition.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save definition: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflow_definition_versions (definition_id, version, definition, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (definition_id, version) DO NOTHING
	`, definition.ID, definition.Version, snapshotJSON, now)
	if err != nil {
		return fmt.Errorf("failed to save definition version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit definition: %w", err)
	}

	return nil
}

func (r *DefinitionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions WHERE id = $1`, id)

	definition, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDefinitionError("GetByID", id, persistence.ErrDefinitionNotFound)
		}

		return nil, fmt.Errorf("failed to scan definition: %w", err)
	}

	return definition, nil
}

// GetVersion returns the snapshot of a definition as it was saved at version.
func (r *DefinitionRepository) GetVersion(ctx context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	var snapshot []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT definition FROM workflow_definition_versions WHERE definition_id = $1 AND version = $2
	`, id, version).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDefinitionVersionError("GetVersion", id, version, persistence.ErrDefinitionNotFound)
		}

		return nil, fmt.Errorf("failed to query definition version: %w", err)
	}

	var definition models.WorkflowDefinition

	err = json.Unmarshal(snapshot, &definition)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition version: %w", err)
	}

	return &definition, nil
}

func (r *DefinitionRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	definitions := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		definition, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}

		definitions = append(definitions, definition)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating definitions: %w", err)
	}

	return definitions, nil
}

func scanDefinition(row scanner) (*models.WorkflowDefinition, error) {
	var (
		definition     models.WorkflowDefinition
		conditionsJSON []byte
		stepsJSON      []byte
	)

	err := row.Scan(
		&definition.ID,
		&definition.Name,
		&definition.Description,
		&definition.Version,
		&definition.TriggerEvent,
		&conditionsJSON,
		&stepsJSON,
		&definition.Enabled,
		&definition.MaxRetries,
		&definition.RetryDelaySeconds,
		&definition.TimeoutSeconds,
		&definition.CreatedAt,
		&definition.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(conditionsJSON, &definition.TriggerConditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
	}

	err = json.Unmarshal(stepsJSON, &definition.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	definition.CreatedAt = definition.CreatedAt.UTC()
	definition.UpdatedAt = definition.UpdatedAt.UTC()

	return &definition, nil
}

func nonNilConditions(c models.TriggerConditions) models.TriggerConditions {
	if c == nil {
		return models.TriggerConditions{}
	}

	return c
}
