package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Lazi-Labs/lazi-sub001/pkg/cmd"
	"github.com/Lazi-Labs/lazi-sub001/pkg/log"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var ErrNoEventBus = errors.New("activator requires an event bus")

// RunActivator consumes business events until ctx is done.
func RunActivator(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("workflow-activator")
	logger.InfoContext(ctx, "Initializing workflow activator")

	rt, err := cmd.Open(ctx, logger, cmd.Options{
		ServiceName: "workflow-activator",
		DatabaseURL: command.String("database-url"),
		RedisURL:    command.String("redis-url"),
		EventBus:    command.String("event-bus"),
		Tracing:     command.Bool("tracing"),
	})
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	if rt.EventBus == nil {
		return ErrNoEventBus
	}

	activator := workflow.NewActivator(rt.Engine, logger)

	err = activator.Register(rt.EventBus)
	if err != nil {
		return fmt.Errorf("failed to register business event handler: %w", err)
	}

	err = rt.EventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to business events: %w", err)
	}

	logger.InfoContext(ctx, "Activator started")

	<-ctx.Done()

	logger.InfoContext(ctx, "Shutting down activator")

	return nil
}
