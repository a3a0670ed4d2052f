package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/eventbus"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs/redisqueue"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Options configure the shared runtime of the workflow binaries.
type Options struct {
	ServiceName string
	DatabaseURL string
	RedisURL    string
	// EventBus is "gochannel" or "kafka". Empty disables lifecycle events. With Kafka, notification
	// and outbound sync jobs are published for external consumers.
	EventBus    string
	WorkerID    string
	LeaseTTL    time.Duration
	Concurrency int
	Tracing     bool
}

// Runtime is the set of connected components every workflow binary runs on.
type Runtime struct {
	Persistence persistence.Persistence
	Entities    entities.Store
	Queues      *Queues
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Engine      *workflow.Engine
	Definitions *workflow.DefinitionService

	logger *slog.Logger
}

// Open connects storage, the job queue and the event bus, and builds the engine on top of them.
// On error every component opened so far is closed.
func Open(ctx context.Context, logger *slog.Logger, opts Options) (_ *Runtime, err error) {
	rt := &Runtime{logger: logger}

	defer func() {
		if err != nil {
			rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.Persistence, err = NewPersistence(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}

	rt.Entities, err = NewEntityStore(ctx, logger, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var outbound message.Publisher

	if opts.EventBus != "" {
		pub, sub, err := NewPubSub(opts.EventBus, logger, opts.ServiceName)
		if err != nil {
			return nil, err
		}

		rt.EventBus = eventbus.NewWatermillEventBus(pub, sub, logger)

		if opts.EventBus == "kafka" {
			outbound = pub
		}
	}

	rt.Queues, err = NewQueues(ctx, logger, opts.RedisURL, redisqueue.Config{Concurrency: opts.Concurrency}, outbound)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(ctx, opts.Tracing, opts.ServiceName)
	if err != nil {
		return nil, err
	}

	rt.Registry = NewRegistry(logger, rt.Queues.Router, rt.Entities)

	engineOpts := []workflow.Option{workflow.WithTracer(tracer)}
	if rt.EventBus != nil {
		engineOpts = append(engineOpts, workflow.WithEventBus(rt.EventBus))
	}

	if opts.WorkerID != "" {
		engineOpts = append(engineOpts, workflow.WithWorkerID(opts.WorkerID))
	}

	if opts.LeaseTTL > 0 {
		engineOpts = append(engineOpts, workflow.WithLeaseTTL(opts.LeaseTTL))
	}

	rt.Engine = workflow.NewEngine(logger, rt.Persistence, rt.Registry, rt.Queues.Router, engineOpts...)
	rt.Definitions = workflow.NewDefinitionService(logger, rt.Persistence, rt.Registry)

	return rt, nil
}

// Close releases every opened component, logging failures.
func (rt *Runtime) Close(ctx context.Context) {
	var errs []error

	if rt.EventBus != nil {
		errs = append(errs, rt.EventBus.Close())
	}

	if rt.Queues != nil {
		errs = append(errs, rt.Queues.Redis.Close())
	}

	if rt.Entities != nil {
		errs = append(errs, rt.Entities.Close(ctx))
	}

	if rt.Persistence != nil {
		errs = append(errs, rt.Persistence.Close(ctx))
	}

	if err := errors.Join(errs...); err != nil {
		rt.logger.ErrorContext(ctx, "Failed to close runtime", "error", fmt.Errorf("close: %w", err))
	}
}
