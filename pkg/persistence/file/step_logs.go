package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

// StepLogRepository stores logs under step_logs/<instance_id>/<log_id>.json.
type StepLogRepository struct {
	mu   *sync.Mutex
	root string
}

func (r *StepLogRepository) logs(instanceID string) (collection, error) {
	err := validateID(instanceID)
	if err != nil {
		return collection{}, err
	}

	return collection{dir: filepath.Join(r.root, instanceID)}, nil
}

func (r *StepLogRepository) Open(_ context.Context, log *models.StepLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	logs, err := r.logs(log.InstanceID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return logs.write(log.ID, log)
}

func (r *StepLogRepository) Finish(_ context.Context, log *models.StepLog) error {
	logs, err := r.logs(log.InstanceID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stored models.StepLog

	err = logs.read(log.ID, &stored)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return fmt.Errorf("%w: %s", persistence.ErrStepLogNotFound, log.ID)
		}

		return err
	}

	if stored.Status != models.StepStatusRunning {
		return fmt.Errorf("%w: %s is not running", persistence.ErrStepLogNotFound, log.ID)
	}

	stored.Status = log.Status
	stored.Result = log.Result
	stored.ErrorMessage = log.ErrorMessage
	stored.CompletedAt = log.CompletedAt
	stored.DurationMs = log.DurationMs

	return logs.write(log.ID, &stored)
}

func (r *StepLogRepository) ByInstance(_ context.Context, instanceID string) ([]*models.StepLog, error) {
	logs, err := r.logs(instanceID)
	if err != nil {
		return nil, err
	}

	ids, err := logs.ids()
	if err != nil {
		return nil, err
	}

	result := make([]*models.StepLog, 0, len(ids))

	for _, id := range ids {
		var log models.StepLog

		err := logs.read(id, &log)
		if err != nil {
			return nil, err
		}

		result = append(result, &log)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StepIndex != result[j].StepIndex {
			return result[i].StepIndex < result[j].StepIndex
		}

		return result[i].StartedAt.Before(result[j].StartedAt)
	})

	return result, nil
}

func (r *StepLogRepository) CountAttempts(ctx context.Context, instanceID string, stepIndex int) (int, error) {
	logs, err := r.ByInstance(ctx, instanceID)
	if err != nil {
		return 0, err
	}

	count := 0

	for _, log := range logs {
		if log.StepIndex == stepIndex {
			count++
		}
	}

	return count, nil
}
