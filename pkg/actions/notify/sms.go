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

type SMSConfig struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	Template string `json:"template"`
}

type SMSHandler struct {
	notifier
}

func NewSMSHandler(logger *slog.Logger, queue jobs.Queue, source entities.Source) *SMSHandler {
	return &SMSHandler{notifier: newNotifier(logger.With("module", "send_sms_action"), queue, source, nil)}
}

func (h *SMSHandler) Type() models.ActionType {
	return models.ActionSendSMS
}

func (h *SMSHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":       map[string]any{"type": "string", "description": "Phone number; defaults to the customer's phone"},
			"message":  map[string]any{"type": "string", "description": "Message body with {{var}} placeholders"},
			"template": map[string]any{"type": "string", "enum": TemplateNames()},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"message"}},
			map[string]any{"required": []string{"template"}},
		},
	}
}

func (h *SMSHandler) Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error) {
	var cfg SMSConfig

	err := actions.DecodeConfig(step, &cfg)
	if err != nil {
		return nil, err
	}

	body := cfg.Message
	if cfg.Template != "" {
		tmpl, err := h.lookupTemplate(cfg.Template)
		if err != nil {
			return nil, err
		}

		if body == "" {
			body = tmpl.SMS
		}
	}

	if strings.TrimSpace(body) == "" {
		return nil, ErrNoContent
	}

	tdata := h.templateData(ctx, instance, data)

	to, err := recipient(cfg.To, "phone", tdata)
	if err != nil {
		return nil, err
	}

	jobID, err := h.enqueue(ctx, instance, step, map[string]any{
		"channel":  ChannelSMS,
		"to":       to,
		"message":  template.Render(body, tdata),
		"template": cfg.Template,
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "Queued SMS", "instance_id", instance.ID, "job_id", jobID, "template", cfg.Template)

	return map[string]any{
		"queued":   true,
		"jobId":    jobID,
		"channel":  ChannelSMS,
		"to":       to,
		"template": cfg.Template,
	}, nil
}
