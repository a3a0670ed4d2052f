package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/template"
)

type EmailConfig struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Template string `json:"template"`
}

type EmailHandler struct {
	notifier
}

func NewEmailHandler(logger *slog.Logger, queue jobs.Queue, source entities.Source) *EmailHandler {
	return &EmailHandler{notifier: newNotifier(logger.With("module", "send_email_action"), queue, source, nil)}
}

func (h *EmailHandler) Type() models.ActionType {
	return models.ActionSendEmail
}

func (h *EmailHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":       map[string]any{"type": "string", "description": "Email address; defaults to the customer's email"},
			"subject":  map[string]any{"type": "string"},
			"body":     map[string]any{"type": "string"},
			"template": map[string]any{"type": "string", "enum": TemplateNames()},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"body"}},
			map[string]any{"required": []string{"template"}},
		},
	}
}

func (h *EmailHandler) Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error) {
	var cfg EmailConfig

	err := actions.DecodeConfig(step, &cfg)
	if err != nil {
		return nil, err
	}

	subject, body := cfg.Subject, cfg.Body
	if cfg.Template != "" {
		tmpl, err := h.lookupTemplate(cfg.Template)
		if err != nil {
			return nil, err
		}

		if subject == "" {
			subject = tmpl.Subject
		}

		if body == "" {
			body = tmpl.Body
		}
	}

	if strings.TrimSpace(body) == "" {
		return nil, ErrNoContent
	}

	tdata := h.templateData(ctx, instance, data)

	to, err := recipient(cfg.To, "email", tdata)
	if err != nil {
		return nil, err
	}

	subject = template.Render(subject, tdata)

	jobID, err := h.enqueue(ctx, instance, step, map[string]any{
		"channel":  ChannelEmail,
		"to":       to,
		"subject":  subject,
		"body":     template.Render(body, tdata),
		"template": cfg.Template,
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Queued email", "instance_id", instance.ID, "job_id", jobID, "template", cfg.Template)

	return map[string]any{
		"queued":   true,
		"jobId":    jobID,
		"channel":  ChannelEmail,
		"to":       to,
		"subject":  subject,
		"template": cfg.Template,
	}, nil
}
