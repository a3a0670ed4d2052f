package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const triggerColumns = `id, event_name, definition_id, enabled, priority, created_at`

// TriggerRepository handles event-to-definition binding database operations.
type TriggerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTriggerRepository(db *sql.DB, logger *slog.Logger) *TriggerRepository {
	return &TriggerRepository{db: db, logger: logger}
}

func (r *TriggerRepository) Save(ctx context.Context, trigger *models.Trigger) error {
	if trigger.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate trigger ID: %w", err)
		}

		trigger.ID = id.String()
	}

	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO workflow_triggers (id, event_name, definition_id, enabled, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			event_name = EXCLUDED.event_name,
			definition_id = EXCLUDED.definition_id,
			enabled = EXCLUDED.enabled,
			priority = EXCLUDED.priority
	`, trigger.ID, trigger.EventName, trigger.DefinitionID, trigger.Enabled, trigger.Priority, trigger.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save trigger: %w", err)
	}

	return nil
}

func (r *TriggerRepository) GetByID(ctx context.Context, id string) (*models.Trigger, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+triggerColumns+` FROM workflow_triggers WHERE id = $1`, id)

	trigger, err := scanTrigger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTriggerNotFound, id)
		}

		return nil, fmt.Errorf("failed to scan trigger: %w", err)
	}

	return trigger, nil
}

func (r *TriggerRepository) EnabledForEvent(ctx context.Context, eventName string) ([]*models.Trigger, error) {
	return r.query(ctx, `
		SELECT `+triggerColumns+` FROM workflow_triggers
		WHERE event_name = $1 AND enabled
		ORDER BY priority DESC, created_at
	`, eventName)
}

func (r *TriggerRepository) ByDefinition(ctx context.Context, definitionID string) ([]*models.Trigger, error) {
	return r.query(ctx, `
		SELECT `+triggerColumns+` FROM workflow_triggers
		WHERE definition_id = $1
		ORDER BY priority DESC, created_at
	`, definitionID)
}

func (r *TriggerRepository) GetAll(ctx context.Context) ([]*models.Trigger, error) {
	return r.query(ctx, `SELECT `+triggerColumns+` FROM workflow_triggers ORDER BY event_name, priority DESC, created_at`)
}

func (r *TriggerRepository) query(ctx context.Context, query string, args ...any) ([]*models.Trigger, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	triggers := make([]*models.Trigger, 0)

	for rows.Next() {
		trigger, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trigger: %w", err)
		}

		triggers = append(triggers, trigger)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating triggers: %w", err)
	}

	return triggers, nil
}

func scanTrigger(row scanner) (*models.Trigger, error) {
	var trigger models.Trigger

	err := row.Scan(&trigger.ID, &trigger.EventName, &trigger.DefinitionID, &trigger.Enabled, &trigger.Priority, &trigger.CreatedAt)
	if err != nil {
		return nil, err
	}

	trigger.CreatedAt = trigger.CreatedAt.UTC()

	return &trigger, nil
}
