package delay

import (
	"context"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"30s", 30 * time.Second},
		{"1m", time.Minute},
		{"2h", 7_200_000 * time.Millisecond},
		{"3d", 72 * time.Hour},
		{"1w", 168 * time.Hour},
		{"0s", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseDuration(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDuration_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "2", "h", "2x", "1.5h", " 2h", "2h ", "-1m", "2H", "99999999999999999999w", "9999999999w"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			_, err := ParseDuration(input)
			require.Error(t, err)
			assert.True(t, actions.IsValidationError(err))
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	handler := &Handler{now: func() time.Time { return now }}

	result, err := handler.Execute(context.Background(), &models.WorkflowInstance{}, models.Step{
		Name:   "wait",
		Action: models.ActionDelay,
		Config: map[string]any{"duration": "2h"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(7_200_000), result["delayMs"])
	assert.Equal(t, "2h", result["duration"])

	until, ok := Until(result)
	require.True(t, ok)
	assert.Equal(t, now.Add(2*time.Hour), until)

	_, err = handler.Execute(context.Background(), &models.WorkflowInstance{}, models.Step{
		Action: models.ActionDelay,
		Config: map[string]any{"duration": "soon"},
	}, nil)
	require.Error(t, err)
}

func TestUntil(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC)

	got, ok := Until(map[string]any{"delayUntil": ts.Format(time.RFC3339Nano)})
	require.True(t, ok)
	assert.True(t, ts.Equal(got))

	_, ok = Until(map[string]any{"delayUntil": 5})
	assert.False(t, ok)

	_, ok = Until(map[string]any{})
	assert.False(t, ok)
}
