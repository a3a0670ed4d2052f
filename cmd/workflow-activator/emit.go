package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/cmd"
	"github.com/Lazi-Labs/lazi-sub001/pkg/eventbus"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
	"github.com/Lazi-Labs/lazi-sub001/pkg/log"
	cli "github.com/urfave/cli/v3"
)

// NewEmitCommand publishes one business event, for wiring checks and manual replays.
func NewEmitCommand() *cli.Command {
	return &cli.Command{
		Name:  "emit",
		Usage: "Publish a business event on the event bus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus carrying business events (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "event-name",
				Usage:    "Business event name, e.g. job.completed",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "entity-type",
				Usage:    "Entity type (customer, job, invoice, estimate, location)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "entity-id",
				Usage:    "Entity identifier",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "context",
				Usage: "Event context as a JSON object",
				Value: "{}",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("workflow-activator").With("action", "emit")

			pub, sub, err := cmd.NewPubSub(command.String("event-bus"), logger, "workflow-emitter")
			if err != nil {
				return err
			}

			bus := eventbus.NewWatermillEventBus(pub, sub, logger)
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			event, err := newBusinessEvent(
				bus.GenerateID(),
				command.String("event-name"),
				command.String("entity-type"),
				command.String("entity-id"),
				command.String("context"),
				time.Now(),
			)
			if err != nil {
				return err
			}

			return emit(ctx, os.Stdout, bus, event)
		},
	}
}

func newBusinessEvent(id, eventName, entityType, entityID, rawContext string, at time.Time) (*events.BusinessEvent, error) {
	event := &events.BusinessEvent{
		BaseEvent: events.BaseEvent{
			ID:        id,
			Type:      events.BusinessEventType,
			Timestamp: at.UTC(),
		},
		EventName:  eventName,
		EntityType: entityType,
		EntityID:   entityID,
	}

	if rawContext != "" {
		err := json.Unmarshal([]byte(rawContext), &event.Context)
		if err != nil {
			return nil, fmt.Errorf("invalid event context: %w", err)
		}
	}

	err := event.Validate()
	if err != nil {
		return nil, err
	}

	return event, nil
}

func emit(ctx context.Context, out io.Writer, publisher eventbus.EventPublisher, event *events.BusinessEvent) error {
	err := publisher.Publish(ctx, event.EntityType+":"+event.EntityID, event)
	if err != nil {
		return fmt.Errorf("failed to publish business event: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Published %s for %s %s (%s)\n", event.EventName, event.EntityType, event.EntityID, event.ID)

	return nil
}
