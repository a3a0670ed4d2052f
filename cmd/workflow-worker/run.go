package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Lazi-Labs/lazi-sub001/pkg/cmd"
	"github.com/Lazi-Labs/lazi-sub001/pkg/log"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// RunWorker consumes workflow executions and runs the recovery sweep until ctx is done.
func RunWorker(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("workflow-worker")

	rt, err := cmd.Open(ctx, logger, cmd.Options{
		ServiceName: "workflow-worker",
		DatabaseURL: command.String("database-url"),
		RedisURL:    command.String("redis-url"),
		EventBus:    command.String("event-bus"),
		WorkerID:    command.String("worker-id"),
		LeaseTTL:    command.Duration("lease-ttl"),
		Concurrency: command.Int("concurrency"),
		Tracing:     command.Bool("tracing"),
	})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	logger = logger.With("worker_id", rt.Engine.WorkerID())
	logger.InfoContext(ctx, "Initializing workflow worker", "actions", rt.Registry.Types())

	worker := workflow.NewWorker(rt.Engine, rt.Queues.Redis, logger)
	sweeper := workflow.NewSweeper(rt.Engine, logger, command.String("sweep-schedule"), command.Duration("sweep-grace"))

	return runUntilDone(ctx,
		func(ctx context.Context) error { return wrap("worker", worker.Run(ctx)) },
		func(ctx context.Context) error { return wrap("sweeper", sweeper.Start(ctx)) },
	)
}

// runUntilDone runs every loop and stops all of them as soon as one returns.
func runUntilDone(ctx context.Context, loops ...func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, loop := range loops {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer cancel()

			err := loop(ctx)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}
