package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const stepLogColumns = `
			id
		  , instance_id
		  , step_index
		  , step_name
		  , action_type
		  , action_config
		  , status
		  , result
		  , error_message
		  , started_at
		  , completed_at
		  , duration_ms
		  , attempt_number`

// StepLogRepository handles step execution log database operations.
type StepLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStepLogRepository(db *sql.DB, logger *slog.Logger) *StepLogRepository {
	return &StepLogRepository{db: db, logger: logger}
}

func (r *StepLogRepository) Open(ctx context.Context, log *models.StepLog) error {
	if log.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate step log ID: %w", err)
		}

		log.ID = id.String()
	}

	config := log.ActionConfig
	if config == nil {
		config = map[string]any{}
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_step_logs (id, instance_id, step_index, step_name, action_type, action_config,
			status, started_at, attempt_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		log.ID,
		log.InstanceID,
		log.StepIndex,
		log.StepName,
		log.ActionType,
		configJSON,
		log.Status,
		log.StartedAt.UTC(),
		log.AttemptNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert step log: %w", err)
	}

	return nil
}

// Finish closes a running log. A log that is already closed is reported as not found.
func (r *StepLogRepository) Finish(ctx context.Context, log *models.StepLog) error {
	resultJSON, err := jsonOrNull(log.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal step result: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE workflow_step_logs SET
			status = $2,
			result = $3,
			error_message = NULLIF($4, ''),
			completed_at = $5,
			duration_ms = $6
		WHERE id = $1 AND status = 'running'
	`, log.ID, log.Status, resultJSON, log.ErrorMessage, log.CompletedAt, log.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to finish step log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s is not running", persistence.ErrStepLogNotFound, log.ID)
	}

	return nil
}

func (r *StepLogRepository) ByInstance(ctx context.Context, instanceID string) ([]*models.StepLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepLogColumns+` FROM workflow_step_logs
		WHERE instance_id = $1
		ORDER BY step_index, started_at
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query step logs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	logs := make([]*models.StepLog, 0)

	for rows.Next() {
		log, err := scanStepLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step log: %w", err)
		}

		logs = append(logs, log)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating step logs: %w", err)
	}

	return logs, nil
}

func (r *StepLogRepository) CountAttempts(ctx context.Context, instanceID string, stepIndex int) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM workflow_step_logs WHERE instance_id = $1 AND step_index = $2
	`, instanceID, stepIndex).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count step attempts: %w", err)
	}

	return count, nil
}

func scanStepLog(row scanner) (*models.StepLog, error) {
	var (
		log          models.StepLog
		configJSON   []byte
		resultJSON   []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
		durationMs   sql.NullInt64
	)

	err := row.Scan(
		&log.ID,
		&log.InstanceID,
		&log.StepIndex,
		&log.StepName,
		&log.ActionType,
		&configJSON,
		&log.Status,
		&resultJSON,
		&errorMessage,
		&log.StartedAt,
		&completedAt,
		&durationMs,
		&log.AttemptNumber,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(configJSON, &log.ActionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
	}

	if resultJSON != nil {
		err = json.Unmarshal(resultJSON, &log.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal step result: %w", err)
		}
	}

	log.ErrorMessage = errorMessage.String
	log.StartedAt = log.StartedAt.UTC()
	log.CompletedAt = nullTime(completedAt)

	if durationMs.Valid {
		log.DurationMs = &durationMs.Int64
	}

	return &log, nil
}

// jsonOrNull encodes v, mapping a nil map to SQL NULL.
func jsonOrNull(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return data, nil
}
