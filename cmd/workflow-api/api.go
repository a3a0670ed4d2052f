// Package main provides the workflow API server.
package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/Lazi-Labs/lazi-sub001/pkg/web"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	engine      *workflow.Engine
	definitions *workflow.DefinitionService
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	engine *workflow.Engine,
	definitions *workflow.DefinitionService,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		engine:      engine,
		definitions: definitions,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.definitions, a.validate, a.registry, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Field Service Workflow API")
	})

	handlers.Routes(app)

	return app
}

// Start serves the API until ctx is done.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		a.logger.Info("Shutting down API server")

		err := app.ShutdownWithTimeout(shutdownTimeout)
		if err != nil {
			a.logger.Error("Failed to shut down API server", "error", err)
		}
	}()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
