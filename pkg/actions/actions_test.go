package actions_test

import (
	"errors"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	var cfg struct {
		Duration string `json:"duration"`
		Refresh  bool   `json:"refresh"`
	}

	err := actions.DecodeConfig(models.Step{Action: models.ActionDelay, Config: map[string]any{"duration": "5m", "refresh": true}}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, "5m", cfg.Duration)
	assert.True(t, cfg.Refresh)

	err = actions.DecodeConfig(models.Step{Action: models.ActionDelay, Config: map[string]any{"duration": 5}}, &cfg)
	require.Error(t, err)
	assert.True(t, actions.IsValidationError(err))

	var validationErr *actions.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, models.ActionDelay, validationErr.Action)
}

func TestValidationError_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "api_call: url is required", actions.NewValidationError(models.ActionAPICall, "url", "is required").Error())
	assert.Equal(t, "delay: bad", actions.NewValidationError(models.ActionDelay, "", "bad").Error())
}

func TestMerge(t *testing.T) {
	t.Parallel()

	base := map[string]any{"a": 1, "b": 2}
	merged := actions.Merge(base, map[string]any{"b": 3, "c": 4})

	assert.Equal(t, map[string]any{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, 2, base["b"])
}
