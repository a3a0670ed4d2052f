// Package delay implements the delay step, which suspends an instance until a due time.
package delay

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
)

var durationPattern = regexp.MustCompile(`^(\d+)(s|m|h|d|w)$`)

var units = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses "<n><unit>" with unit one of s, m, h, d or w.
func ParseDuration(s string) (time.Duration, error) {
	match := durationPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, actions.NewValidationError(models.ActionDelay, "duration", fmt.Sprintf("%q must match <number><s|m|h|d|w>", s))
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, actions.NewValidationError(models.ActionDelay, "duration", fmt.Sprintf("%q is out of range", s))
	}

	unit := units[match[2]]
	if value > math.MaxInt64/int64(unit) {
		return 0, actions.NewValidationError(models.ActionDelay, "duration", fmt.Sprintf("%q is out of range", s))
	}

	return time.Duration(value) * unit, nil
}

type Config struct {
	Duration string `json:"duration"`
}

type Handler struct {
	now func() time.Time
}

func NewHandler() *Handler {
	return &Handler{now: time.Now}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionDelay
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration": map[string]any{
				"type":        "string",
				"pattern":     durationPattern.String(),
				"description": "How long to wait before the next step",
				"examples":    []string{"30s", "15m", "2h", "3d", "1w"},
			},
		},
		"required": []string{"duration"},
	}
}

// Execute computes when the instance may continue. The engine persists delayUntil and
// schedules the next run; nothing waits in-process.
func (h *Handler) Execute(_ context.Context, _ *models.WorkflowInstance, step models.Step, _ map[string]any) (map[string]any, error) {
	var cfg Config

	err := actions.DecodeConfig(step, &cfg)
	if err != nil {
		return nil, err
	}

	duration, err := ParseDuration(cfg.Duration)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"delayUntil": h.now().Add(duration).UTC(),
		"delayMs":    duration.Milliseconds(),
		"duration":   cfg.Duration,
	}, nil
}

// Until extracts the delayUntil timestamp from a delay result, whether it is still a
// time.Time or has been through JSON.
func Until(result map[string]any) (time.Time, bool) {
	switch v := result["delayUntil"].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)

		return t, err == nil
	default:
		return time.Time{}, false
	}
}
