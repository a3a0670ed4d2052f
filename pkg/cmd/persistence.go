// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence/file"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence/postgresql"
)

var ErrUnsupportedDatabase = errors.New("unsupported database url")

// parseDatabaseURL splits a database url into its provider and the remainder. A bare path is a
// file store.
func parseDatabaseURL(databaseURL string) (string, string) {
	provider, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file", databaseURL
	}

	switch provider {
	case "postgres", "postgresql":
		return "postgresql", databaseURL
	default:
		return provider, rest
	}
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parseDatabaseURL(databaseURL)

	switch provider {
	case "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, location)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgresql persistence: %w", err)
		}

		return p, nil
	case "file":
		logger.InfoContext(ctx, "Using file persistence", "root", location)

		return file.NewPersistence(location), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, provider)
	}
}

// NewEntityStore opens the field-service entity store living next to the workflow data.
func NewEntityStore(ctx context.Context, logger *slog.Logger, databaseURL string) (entities.Store, error) {
	provider, location := parseDatabaseURL(databaseURL)

	switch provider {
	case "postgresql":
		store, err := entities.NewPostgresStore(ctx, logger, location)
		if err != nil {
			return nil, fmt.Errorf("failed to open entity store: %w", err)
		}

		return store, nil
	case "file":
		return entities.NewFileStore(filepath.Join(location, "entities")), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, provider)
	}
}
