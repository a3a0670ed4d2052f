// Package updatestage implements the update_stage step, which moves the instance's entity to a
// pipeline stage and optionally queues the change for the external system.
package updatestage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/template"
)

var ErrNoStageWriter = errors.New("no entity store configured for stage updates")

type Config struct {
	Stage          string `json:"stage"`
	StageID        string `json:"stageId"`
	SyncToExternal bool   `json:"syncToExternal"`
}

type Handler struct {
	logger *slog.Logger
	writer entities.StageWriter
	queue  jobs.Queue
	now    func() time.Time
}

func NewHandler(logger *slog.Logger, writer entities.StageWriter, queue jobs.Queue) *Handler {
	return &Handler{
		logger: logger.With("module", "update_stage_action"),
		writer: writer,
		queue:  queue,
		now:    time.Now,
	}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionUpdateStage
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"stage":          map[string]any{"type": "string"},
			"stageId":        map[string]any{"type": []string{"string", "integer"}},
			"syncToExternal": map[string]any{"type": "boolean", "default": false},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"stage"}},
			map[string]any{"required": []string{"stageId"}},
		},
	}
}

func (h *Handler) Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error) {
	cfg, err := decode(step)
	if err != nil {
		return nil, err
	}

	update := entities.StageUpdate{
		EntityType: instance.EntityType,
		EntityID:   instance.EntityID,
		Stage:      template.Render(cfg.Stage, data),
		StageID:    template.Render(cfg.StageID, data),
		InstanceID: instance.ID,
		UpdatedAt:  h.now().UTC(),
	}

	if update.Stage == "" && update.StageID == "" {
		return nil, actions.NewValidationError(models.ActionUpdateStage, "stage", "or stageId is required")
	}

	if h.writer == nil {
		return nil, ErrNoStageWriter
	}

	err = h.writer.UpdateStage(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage of %s %s: %w", instance.EntityType, instance.EntityID, err)
	}

	result := map[string]any{
		"updated":    true,
		"stage":      update.Stage,
		"stageId":    update.StageID,
		"syncQueued": false,
	}

	if cfg.SyncToExternal {
		jobID, err := h.queue.Enqueue(ctx, jobs.QueueOutboundSync, map[string]any{
			"kind":       "stage_update",
			"entityType": update.EntityType,
			"entityId":   update.EntityID,
			"stage":      update.Stage,
			"stageId":    update.StageID,
			"instanceId": instance.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to queue stage sync: %w", err)
		}

		result["syncQueued"] = true
		result["syncJobId"] = jobID
	}

	h.logger.InfoContext(ctx, "Updated entity stage",
		"instance_id", instance.ID,
		"entity_type", update.EntityType,
		"entity_id", update.EntityID,
		"stage", update.Stage,
		"stage_id", update.StageID,
		"sync_queued", result["syncQueued"])

	return result, nil
}

// decode accepts a numeric stageId as well as a string one.
func decode(step models.Step) (Config, error) {
	var cfg Config

	raw, hasID := step.Config["stageId"]
	if hasID {
		if _, isString := raw.(string); !isString && raw != nil {
			step.Config = actions.Merge(step.Config, map[string]any{"stageId": fmt.Sprint(raw)})
		}
	}

	err := actions.DecodeConfig(step, &cfg)

	return cfg, err
}
