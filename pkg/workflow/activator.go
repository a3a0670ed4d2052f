package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lazi-Labs/lazi-sub001/pkg/eventbus"
	"github.com/Lazi-Labs/lazi-sub001/pkg/events"
)

// Activator feeds business events from the event bus into the trigger matcher.
type Activator struct {
	engine *Engine
	logger *slog.Logger
}

func NewActivator(engine *Engine, logger *slog.Logger) *Activator {
	return &Activator{
		engine: engine,
		logger: logger.With("module", "workflow_activator"),
	}
}

// Register subscribes the activator to business events on bus.
func (a *Activator) Register(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.BusinessEventType, a.HandleBusinessEvent)
}

// HandleBusinessEvent triggers workflows for one event. Malformed events are logged and
// acknowledged so they are not redelivered.
func (a *Activator) HandleBusinessEvent(ctx context.Context, event any) error {
	businessEvent, ok := event.(*events.BusinessEvent)
	if !ok {
		a.logger.ErrorContext(ctx, "Unexpected event payload", "type", fmt.Sprintf("%T", event))

		return nil
	}

	err := businessEvent.Validate()
	if err != nil {
		a.logger.WarnContext(ctx, "Ignoring invalid business event", "event_id", businessEvent.ID, "error", err)

		return nil
	}

	instances, err := a.engine.TriggerWorkflows(
		ctx,
		businessEvent.EventName,
		businessEvent.EntityType,
		businessEvent.EntityID,
		businessEvent.Context,
	)
	if err != nil {
		return fmt.Errorf("failed to trigger workflows for %s: %w", businessEvent.EventName, err)
	}

	a.logger.InfoContext(ctx, "Business event processed",
		"event_id", businessEvent.ID,
		"event_name", businessEvent.EventName,
		"instances", len(instances))

	return nil
}
