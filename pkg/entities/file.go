package entities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps entities as JSON files under <root>/entities/<type>/<id>.json.
type FileStore struct {
	root string
	mu   sync.Mutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.Replace(root, "file://", "", 1)}
}

func validateID(id string) error {
	if id == "" {
		return errors.New("entity ID cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("entity ID contains invalid characters")
	}

	return nil
}

func (s *FileStore) path(kind, entityType, entityID string) string {
	return filepath.Join(s.root, kind, entityType, entityID+".json")
}

func (s *FileStore) Fetch(_ context.Context, entityType, entityID string) (map[string]any, error) {
	if _, err := Table(entityType); err != nil {
		return nil, err
	}

	if err := validateID(entityID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path("entities", entityType, entityID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s %s", ErrEntityNotFound, entityType, entityID)
		}

		return nil, fmt.Errorf("failed to read %s %s: %w", entityType, entityID, err)
	}

	row := map[string]any{}

	err = json.Unmarshal(data, &row)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s %s: %w", entityType, entityID, err)
	}

	return row, nil
}

// Put stores an entity row. It is used to seed local environments and tests.
func (s *FileStore) Put(entityType, entityID string, row map[string]any) error {
	if _, err := Table(entityType); err != nil {
		return err
	}

	return s.write("entities", entityType, entityID, row)
}

func (s *FileStore) UpdateStage(_ context.Context, update StageUpdate) error {
	if _, err := Table(update.EntityType); err != nil {
		return err
	}

	return s.write("entity_stages", update.EntityType, update.EntityID, update)
}

// Stage returns the last stage recorded for an entity.
func (s *FileStore) Stage(entityType, entityID string) (*StageUpdate, error) {
	data, err := os.ReadFile(s.path("entity_stages", entityType, entityID))
	if err != nil {
		return nil, fmt.Errorf("failed to read stage of %s %s: %w", entityType, entityID, err)
	}

	var update StageUpdate

	err = json.Unmarshal(data, &update)
	if err != nil {
		return nil, err
	}

	return &update, nil
}

func (s *FileStore) write(kind, entityType, entityID string, value any) error {
	if err := validateID(entityID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, kind, entityType)

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", entityType, entityID, err)
	}

	tmp, err := os.CreateTemp(dir, "."+entityID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", entityType, entityID, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), s.path(kind, entityType, entityID))
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s %s: %w", entityType, entityID, err)
	}

	return nil
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}
