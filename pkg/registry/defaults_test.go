package registry

import (
	"log/slog"
	"os"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/mocks"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	r.RegisterDefaults(Dependencies{Queue: &mocks.MockQueue{}, Entities: &mocks.MockEntityStore{}})

	assert.Equal(t, []models.ActionType{
		models.ActionAPICall,
		models.ActionCondition,
		models.ActionDelay,
		models.ActionSendEmail,
		models.ActionSendSMS,
		models.ActionUpdateStage,
	}, r.Types())
}

func TestRegisterDefaults_SchemaValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	r.RegisterDefaults(Dependencies{Queue: &mocks.MockQueue{}, Entities: &mocks.MockEntityStore{}})

	tests := []struct {
		name  string
		step  models.Step
		valid bool
	}{
		{"delay ok", models.Step{Name: "w", Action: models.ActionDelay, Config: map[string]any{"duration": "2h"}}, true},
		{"delay malformed", models.Step{Name: "w", Action: models.ActionDelay, Config: map[string]any{"duration": "2 hours"}}, false},
		{"delay missing", models.Step{Name: "w", Action: models.ActionDelay}, false},
		{"condition ok", models.Step{Name: "c", Action: models.ActionCondition, Config: map[string]any{"field": "status", "operator": "eq", "value": "paid"}}, true},
		{"condition bad operator", models.Step{Name: "c", Action: models.ActionCondition, Config: map[string]any{"field": "status", "operator": "like"}}, false},
		{"sms template", models.Step{Name: "s", Action: models.ActionSendSMS, Config: map[string]any{"template": "job_completed"}}, true},
		{"sms unknown template", models.Step{Name: "s", Action: models.ActionSendSMS, Config: map[string]any{"template": "birthday"}}, false},
		{"sms no content", models.Step{Name: "s", Action: models.ActionSendSMS, Config: map[string]any{"to": "+1555"}}, false},
		{"email body", models.Step{Name: "e", Action: models.ActionSendEmail, Config: map[string]any{"subject": "Hi", "body": "Hello"}}, true},
		{"stage id", models.Step{Name: "u", Action: models.ActionUpdateStage, Config: map[string]any{"stageId": 4}}, true},
		{"stage missing", models.Step{Name: "u", Action: models.ActionUpdateStage, Config: map[string]any{"syncToExternal": true}}, false},
		{"api ok", models.Step{Name: "a", Action: models.ActionAPICall, Config: map[string]any{"url": "https://example.com", "expectedStatus": []any{200, 204}}}, true},
		{"api no url", models.Step{Name: "a", Action: models.ActionAPICall, Config: map[string]any{"method": "POST"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := r.ValidateStep(tt.step)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
