// Package apicall implements the api_call step, an outbound HTTP request whose response
// becomes the step result.
package apicall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/template"
)

const (
	DefaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20
)

var ErrRequestTimeout = errors.New("request timed out")

// StatusError is returned when the response status is not one of the expected ones.
type StatusError struct {
	Status   int
	Expected []int
	Body     any
}

func (e *StatusError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("unexpected response status %d, expected 2xx", e.Status)
	}

	return fmt.Sprintf("unexpected response status %d, expected one of %v", e.Status, e.Expected)
}

type Config struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
	// Timeout in milliseconds.
	Timeout        int `json:"timeout"`
	ExpectedStatus any `json:"expectedStatus"`
}

type Handler struct {
	logger *slog.Logger
	client *http.Client
}

// NewHandler creates an api_call handler. A nil client uses a default http.Client.
func NewHandler(logger *slog.Logger, client *http.Client) *Handler {
	if client == nil {
		client = &http.Client{}
	}

	return &Handler{
		logger: logger.With("module", "api_call_action"),
		client: client,
	}
}

func (h *Handler) Type() models.ActionType {
	return models.ActionAPICall
}

func (h *Handler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{"type": "string", "minLength": 1},
			"method": map[string]any{
				"type": "string",
				"enum": []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "get", "post", "put", "patch", "delete", "head"},
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":    map[string]any{},
			"timeout": map[string]any{"type": "integer", "minimum": 1, "description": "Milliseconds"},
			"expectedStatus": map[string]any{
				"oneOf": []any{
					map[string]any{"type": "integer"},
					map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
				},
			},
		},
		"required": []string{"url"},
	}
}

func (h *Handler) Execute(ctx context.Context, instance *models.WorkflowInstance, step models.Step, data map[string]any) (map[string]any, error) {
	var cfg Config

	err := actions.DecodeConfig(step, &cfg)
	if err != nil {
		return nil, err
	}

	expected, err := expectedStatuses(cfg.ExpectedStatus)
	if err != nil {
		return nil, err
	}

	url := template.Render(cfg.URL, data)
	if url == "" {
		return nil, actions.NewValidationError(models.ActionAPICall, "url", "is required")
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := DefaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}

	body, isJSON, err := encodeBody(template.RenderValue(cfg.Body, data))
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range template.RenderStrings(cfg.Headers, data) {
		req.Header.Set(key, value)
	}

	started := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		if isTimeout(reqCtx, err) {
			return nil, fmt.Errorf("%w after %s: %s %s", ErrRequestTimeout, timeout, method, url)
		}

		return nil, fmt.Errorf("http request failed: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if isTimeout(reqCtx, err) {
			return nil, fmt.Errorf("%w reading response: %s %s", ErrRequestTimeout, method, url)
		}

		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	response := decodeResponse(raw)

	h.logger.InfoContext(ctx, "API call completed",
		"instance_id", instance.ID,
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(started))

	if !statusAccepted(resp.StatusCode, expected) {
		return nil, &StatusError{Status: resp.StatusCode, Expected: expected, Body: response}
	}

	return map[string]any{
		"success":  true,
		"status":   resp.StatusCode,
		"response": response,
	}, nil
}

func expectedStatuses(v any) ([]int, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return []int{int(s)}, nil
	case []any:
		out := make([]int, 0, len(s))
		for _, item := range s {
			code, ok := item.(float64)
			if !ok {
				return nil, actions.NewValidationError(models.ActionAPICall, "expectedStatus", "must contain integers")
			}

			out = append(out, int(code))
		}

		return out, nil
	default:
		return nil, actions.NewValidationError(models.ActionAPICall, "expectedStatus", "must be an integer or a list of integers")
	}
}

func statusAccepted(status int, expected []int) bool {
	if len(expected) == 0 {
		return status >= 200 && status < 300
	}

	return slices.Contains(expected, status)
}

// encodeBody sends strings verbatim and everything else as JSON.
func encodeBody(body any) (io.Reader, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case string:
		if b == "" {
			return nil, false, nil
		}

		return strings.NewReader(b), false, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, false, actions.NewValidationError(models.ActionAPICall, "body", "is not serializable: "+err.Error())
		}

		return bytes.NewReader(data), true, nil
	}
}

func decodeResponse(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var decoded any

	err := json.Unmarshal(raw, &decoded)
	if err != nil {
		return string(raw)
	}

	return decoded
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
