package file

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

type InstanceRepository struct {
	mu      *sync.Mutex
	records collection
}

func (r *InstanceRepository) Create(_ context.Context, instance *models.WorkflowInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.New().String()
	}

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}

	instance.UpdatedAt = instance.CreatedAt
	instance.Version = 1

	if instance.StepResults == nil {
		instance.StepResults = []models.StepResult{}
	}

	if instance.Context == nil {
		instance.Context = map[string]any{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.records.exists(instance.ID) {
		return persistence.NewInstanceError("Create", instance.ID, persistence.ErrInstanceAlreadyExists)
	}

	return r.records.write(instance.ID, instance)
}

func (r *InstanceRepository) GetByID(_ context.Context, id string) (*models.WorkflowInstance, error) {
	return r.load("GetByID", id)
}

func (r *InstanceRepository) load(op, id string) (*models.WorkflowInstance, error) {
	var instance models.WorkflowInstance

	err := r.records.read(id, &instance)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return nil, persistence.NewInstanceError(op, id, persistence.ErrInstanceNotFound)
		}

		return nil, err
	}

	return &instance, nil
}

// update applies change under the write lock and stores the instance when change reports true.
func (r *InstanceRepository) update(op, id string, change func(*models.WorkflowInstance) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, err := r.load(op, id)
	if err != nil {
		return false, err
	}

	if !change(instance) {
		return false, nil
	}

	return true, r.records.write(id, instance)
}

func (r *InstanceRepository) Transition(_ context.Context, id string, t persistence.Transition) (bool, error) {
	at := t.At.UTC()

	return r.update("Transition", id, func(instance *models.WorkflowInstance) bool {
		if !slices.Contains(t.From, instance.Status) {
			return false
		}

		instance.Status = t.To

		if t.ErrorMessage != "" {
			instance.ErrorMessage = t.ErrorMessage
		}

		if t.To == models.InstanceStatusRunning && instance.StartedAt == nil {
			instance.StartedAt = &at
		}

		if t.To.IsTerminal() {
			instance.CompletedAt = &at
		}

		instance.UpdatedAt = at
		instance.Version++

		return true
	})
}

func (r *InstanceRepository) AdvanceStep(_ context.Context, id string, nextStep int, result models.StepResult, at time.Time) error {
	_, err := r.update("AdvanceStep", id, func(instance *models.WorkflowInstance) bool {
		instance.StepResults = append(instance.StepResults, result)
		instance.CurrentStep = max(instance.CurrentStep, nextStep)
		instance.NextStepAt = nil
		instance.UpdatedAt = at.UTC()
		instance.Version++

		return true
	})

	return err
}

func (r *InstanceRepository) ScheduleNextStep(_ context.Context, id string, due time.Time, at time.Time) error {
	due = due.UTC()

	_, err := r.update("ScheduleNextStep", id, func(instance *models.WorkflowInstance) bool {
		instance.NextStepAt = &due
		instance.UpdatedAt = at.UTC()
		instance.Version++

		return true
	})

	return err
}

func (r *InstanceRepository) Claim(_ context.Context, id, owner string, until, now time.Time) (bool, error) {
	until = until.UTC()

	return r.update("Claim", id, func(instance *models.WorkflowInstance) bool {
		if instance.LeaseHeld(now) {
			return false
		}

		instance.LockedBy = owner
		instance.LockedUntil = &until

		return true
	})
}

func (r *InstanceRepository) Release(_ context.Context, id, owner string) error {
	_, err := r.update("Release", id, func(instance *models.WorkflowInstance) bool {
		if instance.LockedBy != owner {
			return false
		}

		instance.LockedBy = ""
		instance.LockedUntil = nil

		return true
	})

	return err
}

func (r *InstanceRepository) List(_ context.Context, filter persistence.InstanceFilter) ([]*models.WorkflowInstance, error) {
	instances, err := r.all()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowInstance, 0)

	for _, instance := range instances {
		if filter.DefinitionID != "" && instance.DefinitionID != filter.DefinitionID ||
			filter.EntityType != "" && instance.EntityType != filter.EntityType ||
			filter.EntityID != "" && instance.EntityID != filter.EntityID ||
			filter.Status != "" && instance.Status != filter.Status {
			continue
		}

		matched = append(matched, instance)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (r *InstanceRepository) ListRecoverable(_ context.Context, now, staleBefore time.Time, limit int) ([]*models.WorkflowInstance, error) {
	instances, err := r.all()
	if err != nil {
		return nil, err
	}

	recoverable := make([]*models.WorkflowInstance, 0)

	for _, instance := range instances {
		if instance.LockedUntil != nil && instance.LockedUntil.After(now) {
			continue
		}

		switch instance.Status {
		case models.InstanceStatusRunning:
			due := instance.UpdatedAt
			if instance.NextStepAt != nil {
				due = *instance.NextStepAt
			}

			if !due.After(staleBefore) {
				recoverable = append(recoverable, instance)
			}
		case models.InstanceStatusPending:
			if !instance.CreatedAt.After(staleBefore) {
				recoverable = append(recoverable, instance)
			}
		}
	}

	sort.Slice(recoverable, func(i, j int) bool {
		return dueAt(recoverable[i]).Before(dueAt(recoverable[j]))
	})

	if limit > 0 && len(recoverable) > limit {
		recoverable = recoverable[:limit]
	}

	return recoverable, nil
}

func dueAt(instance *models.WorkflowInstance) time.Time {
	if instance.NextStepAt != nil {
		return *instance.NextStepAt
	}

	return instance.CreatedAt
}

func (r *InstanceRepository) all() ([]*models.WorkflowInstance, error) {
	ids, err := r.records.ids()
	if err != nil {
		return nil, err
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := r.load("List", id)
		if err != nil {
			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, nil
}
