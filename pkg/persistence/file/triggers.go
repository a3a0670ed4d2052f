package file

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

type TriggerRepository struct {
	mu      *sync.Mutex
	records collection
}

func (r *TriggerRepository) Save(_ context.Context, trigger *models.Trigger) error {
	if trigger.ID == "" {
		trigger.ID = uuid.New().String()
	}

	if trigger.CreatedAt.IsZero() {
		trigger.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.records.write(trigger.ID, trigger)
}

func (r *TriggerRepository) GetByID(_ context.Context, id string) (*models.Trigger, error) {
	var trigger models.Trigger

	err := r.records.read(id, &trigger)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return nil, fmt.Errorf("%w: %s", persistence.ErrTriggerNotFound, id)
		}

		return nil, err
	}

	return &trigger, nil
}

func (r *TriggerRepository) EnabledForEvent(ctx context.Context, eventName string) ([]*models.Trigger, error) {
	return r.filter(ctx, func(t *models.Trigger) bool {
		return t.Enabled && t.EventName == eventName
	})
}

func (r *TriggerRepository) ByDefinition(ctx context.Context, definitionID string) ([]*models.Trigger, error) {
	return r.filter(ctx, func(t *models.Trigger) bool {
		return t.DefinitionID == definitionID
	})
}

func (r *TriggerRepository) GetAll(ctx context.Context) ([]*models.Trigger, error) {
	return r.filter(ctx, func(*models.Trigger) bool { return true })
}

// filter returns matching triggers, highest priority first.
func (r *TriggerRepository) filter(ctx context.Context, keep func(*models.Trigger) bool) ([]*models.Trigger, error) {
	ids, err := r.records.ids()
	if err != nil {
		return nil, err
	}

	triggers := make([]*models.Trigger, 0)

	for _, id := range ids {
		trigger, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if keep(trigger) {
			triggers = append(triggers, trigger)
		}
	}

	sort.SliceStable(triggers, func(i, j int) bool {
		if triggers[i].Priority != triggers[j].Priority {
			return triggers[i].Priority > triggers[j].Priority
		}

		return triggers[i].CreatedAt.Before(triggers[j].CreatedAt)
	})

	return triggers, nil
}
