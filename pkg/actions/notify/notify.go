// Package notify implements the send_sms and send_email steps. Messages are rendered here and
// handed to the notifications queue; delivery happens elsewhere.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/template"
)

var (
	ErrNoRecipient     = errors.New("no recipient could be resolved")
	ErrNoContent       = errors.New("no message content")
	ErrUnknownTemplate = errors.New("unknown template")
)

const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// notifier holds what both channels share: recipient lookup, template data and enqueueing.
type notifier struct {
	logger    *slog.Logger
	queue     jobs.Queue
	source    entities.Source
	templates map[string]Template
}

func newNotifier(logger *slog.Logger, queue jobs.Queue, source entities.Source, templates map[string]Template) notifier {
	if templates == nil {
		templates = DefaultTemplates
	}

	return notifier{logger: logger, queue: queue, source: source, templates: templates}
}

func (n notifier) lookupTemplate(name string) (Template, error) {
	tmpl, ok := n.templates[name]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	return tmpl, nil
}

// templateData merges the context with the live entity row, its customer and the instance.
// Entity lookups are best effort; the context alone may be enough to render and address.
func (n notifier) templateData(ctx context.Context, instance *models.WorkflowInstance, data map[string]any) map[string]any {
	merged := actions.Merge(data, map[string]any{
		"instance": map[string]any{
			"id":            instance.ID,
			"definition_id": instance.DefinitionID,
			"entity_type":   instance.EntityType,
			"entity_id":     instance.EntityID,
			"status":        string(instance.Status),
		},
	})

	if n.source == nil || instance.EntityType == "" {
		return merged
	}

	entity, err := n.source.Fetch(ctx, instance.EntityType, instance.EntityID)
	if err != nil {
		n.logger.WarnContext(ctx, "Could not load entity for notification",
			"instance_id", instance.ID,
			"entity_type", instance.EntityType,
			"entity_id", instance.EntityID,
			"error", err)

		return merged
	}

	merged["entity"] = entity

	if _, ok := merged["customer"]; !ok {
		customer, err := entities.CustomerOf(ctx, n.source, instance.EntityType, entity)
		if err != nil {
			n.logger.DebugContext(ctx, "No customer for entity", "instance_id", instance.ID, "error", err)
		} else {
			merged["customer"] = customer
		}
	}

	return merged
}

// recipient resolves the address for field ("phone" or "email"): explicit value first, then the
// context, then the customer and entity rows in the template data.
func recipient(explicit, field string, data map[string]any) (string, error) {
	if to := strings.TrimSpace(template.Render(explicit, data)); to != "" {
		return to, nil
	}

	for _, path := range []string{field, "customer." + field, "entity." + field} {
		if to := strings.TrimSpace(template.Render("{{"+path+"}}", data)); to != "" {
			return to, nil
		}
	}

	return "", fmt.Errorf("%w: set 'to' or provide a %s in the context", ErrNoRecipient, field)
}

func (n notifier) enqueue(ctx context.Context, instance *models.WorkflowInstance, step models.Step, payload map[string]any) (string, error) {
	payload["instanceId"] = instance.ID
	payload["entityType"] = instance.EntityType
	payload["entityId"] = instance.EntityID
	payload["step"] = step.Name

	jobID, err := n.queue.Enqueue(ctx, jobs.QueueNotifications, payload)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s notification: %w", payload["channel"], err)
	}

	return jobID, nil
}
