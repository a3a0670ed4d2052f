package cmd

import (
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
)

// NewRegistry returns a registry holding every built-in action handler.
func NewRegistry(logger *slog.Logger, queue jobs.Queue, store entities.Store) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults(registry.Dependencies{
		Logger:   logger,
		Queue:    queue,
		Entities: store,
	})

	return reg
}
