package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const instanceColumns = `
			id
		  , definition_id
		  , definition_version
		  , entity_type
		  , entity_id
		  , status
		  , context
		  , current_step
		  , step_results
		  , error_message
		  , next_step_at
		  , locked_by
		  , locked_until
		  , version
		  , created_at
		  , updated_at
		  , started_at
		  , completed_at`

// InstanceRepository handles workflow instance database operations. Every mutation is a single
// conditional UPDATE so concurrent writers never overwrite each other's status.
type InstanceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewInstanceRepository(db *sql.DB, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, logger: logger}
}

func (r *InstanceRepository) Create(ctx context.Context, instance *models.WorkflowInstance) error {
	now := time.Now().UTC()

	if instance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}

		instance.ID = id.String()
	}

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = now
	}

	instance.UpdatedAt = instance.CreatedAt
	instance.Version = 1

	if instance.StepResults == nil {
		instance.StepResults = []models.StepResult{}
	}

	if instance.Context == nil {
		instance.Context = map[string]any{}
	}

	contextJSON, err := json.Marshal(instance.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal instance context: %w", err)
	}

	resultsJSON, err := json.Marshal(instance.StepResults)
	if err != nil {
		return fmt.Errorf("failed to marshal step results: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, definition_id, definition_version, entity_type, entity_id, status,
			context, current_step, step_results, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		instance.ID,
		instance.DefinitionID,
		instance.DefinitionVersion,
		instance.EntityType,
		instance.EntityID,
		instance.Status,
		contextJSON,
		instance.CurrentStep,
		resultsJSON,
		instance.Version,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return persistence.NewInstanceError("Create", instance.ID, persistence.ErrInstanceAlreadyExists)
		}

		return fmt.Errorf("failed to insert instance: %w", err)
	}

	return nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM workflow_instances WHERE id = $1`, id)

	instance, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("GetByID", id, persistence.ErrInstanceNotFound)
		}

		return nil, fmt.Errorf("failed to scan instance: %w", err)
	}

	return instance, nil
}

func (r *InstanceRepository) List(ctx context.Context, filter persistence.InstanceFilter) ([]*models.WorkflowInstance, error) {
	var (
		where []string
		args  []any
	)

	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if filter.DefinitionID != "" {
		add("definition_id", filter.DefinitionID)
	}

	if filter.EntityType != "" {
		add("entity_type", filter.EntityType)
	}

	if filter.EntityID != "" {
		add("entity_id", filter.EntityID)
	}

	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + instanceColumns + ` FROM workflow_instances`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return r.query(ctx, query, args...)
}

func (r *InstanceRepository) Transition(ctx context.Context, id string, t persistence.Transition) (bool, error) {
	from := make([]string, 0, len(t.From))
	for _, status := range t.From {
		from = append(from, string(status))
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET
			status = $2::varchar,
			error_message = CASE WHEN $3::text <> '' THEN $3::text ELSE error_message END,
			started_at = CASE WHEN $2::varchar = 'running' THEN COALESCE(started_at, $4) ELSE started_at END,
			completed_at = CASE WHEN $2::varchar IN ('completed', 'failed', 'cancelled') THEN $4 ELSE completed_at END,
			updated_at = $4,
			version = version + 1
		WHERE id = $1 AND status = ANY($5)
	`, id, string(t.To), t.ErrorMessage, t.At.UTC(), pq.Array(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition instance to %s: %w", t.To, err)
	}

	applied, err := r.affected(ctx, "Transition", id, result)
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (r *InstanceRepository) AdvanceStep(ctx context.Context, id string, nextStep int, stepResult models.StepResult, at time.Time) error {
	resultJSON, err := json.Marshal([]models.StepResult{stepResult})
	if err != nil {
		return fmt.Errorf("failed to marshal step result: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET
			step_results = step_results || $3::jsonb,
			current_step = GREATEST(current_step, $2),
			next_step_at = NULL,
			updated_at = $4,
			version = version + 1
		WHERE id = $1
	`, id, nextStep, resultJSON, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to advance instance step: %w", err)
	}

	return r.mustAffect(ctx, "AdvanceStep", id, result)
}

func (r *InstanceRepository) ScheduleNextStep(ctx context.Context, id string, due time.Time, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET next_step_at = $2, updated_at = $3, version = version + 1
		WHERE id = $1
	`, id, due.UTC(), at.UTC())
	if err != nil {
		return fmt.Errorf("failed to schedule next step: %w", err)
	}

	return r.mustAffect(ctx, "ScheduleNextStep", id, result)
}

func (r *InstanceRepository) Claim(ctx context.Context, id, owner string, until, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET locked_by = $2, locked_until = $3
		WHERE id = $1 AND (locked_by IS NULL OR locked_until IS NULL OR locked_until <= $4)
	`, id, owner, until.UTC(), now.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to claim instance: %w", err)
	}

	return r.affected(ctx, "Claim", id, result)
}

func (r *InstanceRepository) Release(ctx context.Context, id, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE workflow_instances SET locked_by = NULL, locked_until = NULL
		WHERE id = $1 AND locked_by = $2
	`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to release instance: %w", err)
	}

	return nil
}

func (r *InstanceRepository) ListRecoverable(ctx context.Context, now, staleBefore time.Time, limit int) ([]*models.WorkflowInstance, error) {
	return r.query(ctx, `
		SELECT `+instanceColumns+` FROM workflow_instances
		WHERE (locked_until IS NULL OR locked_until <= $1)
		  AND (
			(status = 'running' AND COALESCE(next_step_at, updated_at) <= $2)
			OR (status = 'pending' AND created_at <= $2)
		  )
		ORDER BY COALESCE(next_step_at, created_at)
		LIMIT $3
	`, now.UTC(), staleBefore.UTC(), limit)
}

// affected reports whether an UPDATE matched, telling a missing instance apart from a failed
// condition.
func (r *InstanceRepository) affected(ctx context.Context, op, id string, result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rows > 0 {
		return true, nil
	}

	var exists bool

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM workflow_instances WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check instance existence: %w", err)
	}

	if !exists {
		return false, persistence.NewInstanceError(op, id, persistence.ErrInstanceNotFound)
	}

	return false, nil
}

func (r *InstanceRepository) mustAffect(ctx context.Context, op, id string, result sql.Result) error {
	_, err := r.affected(ctx, op, id, result)

	return err
}

func (r *InstanceRepository) query(ctx context.Context, query string, args ...any) ([]*models.WorkflowInstance, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	instances := make([]*models.WorkflowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

func scanInstance(row scanner) (*models.WorkflowInstance, error) {
	var (
		instance     models.WorkflowInstance
		contextJSON  []byte
		resultsJSON  []byte
		errorMessage sql.NullString
		nextStepAt   sql.NullTime
		lockedBy     sql.NullString
		lockedUntil  sql.NullTime
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.DefinitionVersion,
		&instance.EntityType,
		&instance.EntityID,
		&instance.Status,
		&contextJSON,
		&instance.CurrentStep,
		&resultsJSON,
		&errorMessage,
		&nextStepAt,
		&lockedBy,
		&lockedUntil,
		&instance.Version,
		&instance.CreatedAt,
		&instance.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(contextJSON, &instance.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance context: %w", err)
	}

	err = json.Unmarshal(resultsJSON, &instance.StepResults)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal step results: %w", err)
	}

	instance.ErrorMessage = errorMessage.String
	instance.NextStepAt = nullTime(nextStepAt)
	instance.LockedBy = lockedBy.String
	instance.LockedUntil = nullTime(lockedUntil)
	instance.StartedAt = nullTime(startedAt)
	instance.CompletedAt = nullTime(completedAt)
	instance.CreatedAt = instance.CreatedAt.UTC()
	instance.UpdatedAt = instance.UpdatedAt.UTC()

	return &instance, nil
}
