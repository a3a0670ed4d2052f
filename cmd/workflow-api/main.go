package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lazi-Labs/lazi-sub001/pkg/cmd"
	"github.com/Lazi-Labs/lazi-sub001/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "workflow-api",
		Usage:                 "Manage workflow definitions and control workflow instances",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres://... or file://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for the job queue",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus for lifecycle events (gochannel, kafka). Empty disables them",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("workflow-api")
			logger.InfoContext(ctx, "Initializing workflow API")

			rt, err := cmd.Open(ctx, logger, cmd.Options{
				ServiceName: "workflow-api",
				DatabaseURL: command.String("database-url"),
				RedisURL:    command.String("redis-url"),
				EventBus:    command.String("event-bus"),
				Tracing:     command.Bool("tracing"),
			})
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			api := NewAPI(logger, rt.Persistence, rt.Registry, rt.Engine, rt.Definitions)

			return api.Start(ctx, command.Int("port"))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
