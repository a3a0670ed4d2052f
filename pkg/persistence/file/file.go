// Package file provides file-based persistence for local development and tests. Each record is
// a JSON file replaced atomically on write; a process-wide mutex serializes writes so conditional
// updates stay atomic within one process.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
)

var errNotExist = errors.New("record does not exist")

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	mu          *sync.Mutex
	definitions *DefinitionRepository
	triggers    *TriggerRepository
	instances   *InstanceRepository
	stepLogs    *StepLogRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	mu := &sync.Mutex{}

	return &Persistence{
		root:        cleanRoot,
		mu:          mu,
		definitions: &DefinitionRepository{mu: mu, heads: collection{dir: filepath.Join(cleanRoot, "definitions")}, root: cleanRoot},
		triggers:    &TriggerRepository{mu: mu, records: collection{dir: filepath.Join(cleanRoot, "triggers")}},
		instances:   &InstanceRepository{mu: mu, records: collection{dir: filepath.Join(cleanRoot, "instances")}},
		stepLogs:    &StepLogRepository{mu: mu, root: filepath.Join(cleanRoot, "step_logs")},
	}
}

func (fp *Persistence) Definitions() persistence.DefinitionRepository {
	return fp.definitions
}

func (fp *Persistence) Triggers() persistence.TriggerRepository {
	return fp.triggers
}

func (fp *Persistence) Instances() persistence.InstanceRepository {
	return fp.instances
}

func (fp *Persistence) StepLogs() persistence.StepLogRepository {
	return fp.stepLogs
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks that the root directory exists or can be created.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(fp.root, 0750)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	return nil
}

func validateID(id string) error {
	if id == "" {
		return errors.New("ID cannot be empty")
	}

	if strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return errors.New("ID contains invalid characters")
	}

	return nil
}

// collection is a directory of <id>.json files.
type collection struct {
	dir string
}

func (c collection) path(id string) string {
	return filepath.Join(c.dir, id+".json")
}

func (c collection) read(id string, target any) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return errNotExist
		}

		return fmt.Errorf("failed to read %s: %w", c.path(id), err)
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.path(id), err)
	}

	return nil
}

func (c collection) write(id string, value any) error {
	err := validateID(id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(c.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.dir, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", id, err)
	}

	return replaceFile(c.dir, c.path(id), data)
}

// replaceFile writes data to a temporary file in dir and renames it over path, so readers see
// either the previous or the new content and never a partial write.
func replaceFile(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func (c collection) exists(id string) bool {
	_, err := os.Stat(c.path(id))

	return err == nil
}

// ids lists the record IDs in the collection; a missing directory is empty.
func (c collection) ids() ([]string, error) {
	files, err := fs.Glob(os.DirFS(c.dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.dir, err)
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
