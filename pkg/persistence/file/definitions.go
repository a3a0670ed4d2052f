package file

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/google/uuid"
)

// DefinitionRepository stores definition heads in definitions/ and snapshots in
// definition_versions/<id>/<version>.json.
type DefinitionRepository struct {
	mu    *sync.Mutex
	root  string
	heads collection
}

func (r *DefinitionRepository) versions(id string) collection {
	return collection{dir: filepath.Join(r.root, "definition_versions", id)}
}

func (r *DefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	now := time.Now().UTC()

	if definition.CreatedAt.IsZero() {
		definition.CreatedAt = now
	}

	definition.UpdatedAt = now

	if definition.ID == "" {
		definition.ID = uuid.New().String()
	}

	if definition.Version == 0 {
		definition.Version = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.heads.write(definition.ID, definition)
	if err != nil {
		return err
	}

	versions := r.versions(definition.ID)
	version := strconv.Itoa(definition.Version)

	if versions.exists(version) {
		return nil
	}

	return versions.write(version, definition)
}

func (r *DefinitionRepository) GetByID(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	var definition models.WorkflowDefinition

	err := r.heads.read(id, &definition)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return nil, persistence.NewDefinitionError("GetByID", id, persistence.ErrDefinitionNotFound)
		}

		return nil, err
	}

	return &definition, nil
}

func (r *DefinitionRepository) GetVersion(_ context.Context, id string, version int) (*models.WorkflowDefinition, error) {
	err := validateID(id)
	if err != nil {
		return nil, err
	}

	var definition models.WorkflowDefinition

	err = r.versions(id).read(strconv.Itoa(version), &definition)
	if err != nil {
		if errors.Is(err, errNotExist) {
			return nil, persistence.NewDefinitionVersionError("GetVersion", id, version, persistence.ErrDefinitionNotFound)
		}

		return nil, err
	}

	return &definition, nil
}

func (r *DefinitionRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	ids, err := r.heads.ids()
	if err != nil {
		return nil, err
	}

	definitions := make([]*models.WorkflowDefinition, 0, len(ids))

	for _, id := range ids {
		definition, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		definitions = append(definitions, definition)
	}

	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].CreatedAt.After(definitions[j].CreatedAt)
	})

	return definitions, nil
}
