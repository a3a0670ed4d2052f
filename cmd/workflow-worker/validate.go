package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Lazi-Labs/lazi-sub001/pkg/cmd"
	"github.com/Lazi-Labs/lazi-sub001/pkg/log"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/Lazi-Labs/lazi-sub001/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidDefinitions = errors.New("invalid workflow definitions found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate stored workflow definitions and their trigger bindings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("workflow-worker").With("action", "validate")

			p, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := p.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			reg := cmd.NewRegistry(logger, nil, nil)

			return validateDefinitions(ctx, os.Stdout, p, workflow.NewDefinitionService(logger, p, reg))
		},
	}
}

func validateDefinitions(ctx context.Context, out io.Writer, p persistence.Persistence, service *workflow.DefinitionService) error {
	definitions, err := service.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch definitions: %w", err)
	}

	_, _ = fmt.Fprintln(out, "Workflow Definition Validation Results:")
	_, _ = fmt.Fprintln(out, "=======================================")

	valid, invalid := 0, 0

	for _, definition := range definitions {
		_, _ = fmt.Fprintf(out, "\nDefinition: %s (%s, version %d)\n", definition.Name, definition.ID, definition.Version)

		err := service.Validate(definition)
		if err != nil {
			_, _ = fmt.Fprintf(out, "  INVALID: %v\n", err)
			invalid++

			continue
		}

		triggers, err := p.Triggers().ByDefinition(ctx, definition.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch triggers of %s: %w", definition.ID, err)
		}

		if !hasEnabledTrigger(definition, triggers) {
			_, _ = fmt.Fprintf(out, "  WARNING: no enabled trigger binding, the definition never starts\n")
		}

		_, _ = fmt.Fprintf(out, "  VALID\n")
		valid++
	}

	_, _ = fmt.Fprintf(out, "\nValidation Summary:\n")
	_, _ = fmt.Fprintf(out, "  Total definitions: %d\n", valid+invalid)
	_, _ = fmt.Fprintf(out, "  Valid definitions: %d\n", valid)
	_, _ = fmt.Fprintf(out, "  Invalid definitions: %d\n", invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDefinitions, invalid)
	}

	return nil
}

func hasEnabledTrigger(definition *models.WorkflowDefinition, triggers []*models.Trigger) bool {
	if !definition.Enabled {
		return false
	}

	for _, trigger := range triggers {
		if trigger.Enabled {
			return true
		}
	}

	return false
}
