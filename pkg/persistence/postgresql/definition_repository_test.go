package postgresql_test

import (
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinitionRepository_SaveAndVersions(t *testing.T) {
	p, ctx, _ := setupTestDB(t)
	repo := p.Definitions()

	definition := newDefinition()
	require.NoError(t, repo.Save(ctx, definition))
	assert.NotEmpty(t, definition.ID)
	assert.Equal(t, 1, definition.Version)

	loaded, err := repo.GetByID(ctx, definition.ID)
	require.NoError(t, err)
	assert.Equal(t, "Invoice follow-up", loaded.Name)
	assert.Len(t, loaded.Steps, 2)
	assert.Equal(t, models.ActionDelay, loaded.Steps[0].Action)
	assert.Equal(t, map[string]any{"$gt": 100.0}, loaded.TriggerConditions["total"])
	assert.Equal(t, 2, loaded.MaxRetries)

	definition.Version = 2
	definition.Steps = definition.Steps[:1]
	require.NoError(t, repo.Save(ctx, definition))

	head, err := repo.GetByID(ctx, definition.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, head.Version)
	assert.Len(t, head.Steps, 1)

	v1, err := repo.GetVersion(ctx, definition.ID, 1)
	require.NoError(t, err)
	assert.Len(t, v1.Steps, 2)

	_, err = repo.GetVersion(ctx, definition.ID, 9)
	require.Error(t, err)
	assert.True(t, persistence.IsDefinitionNotFound(err))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDefinitionRepository_NotFound(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	_, err := p.Definitions().GetByID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func TestTriggerRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := newDefinition()
	require.NoError(t, p.Definitions().Save(ctx, first))

	second := newDefinition()
	require.NoError(t, p.Definitions().Save(ctx, second))

	low := &models.Trigger{EventName: "invoice.created", DefinitionID: first.ID, Enabled: true, Priority: 1}
	high := &models.Trigger{EventName: "invoice.created", DefinitionID: second.ID, Enabled: true, Priority: 10}
	disabled := &models.Trigger{EventName: "invoice.created", DefinitionID: second.ID, Enabled: false, Priority: 50}
	other := &models.Trigger{EventName: "job.completed", DefinitionID: first.ID, Enabled: true}

	for _, trigger := range []*models.Trigger{low, high, disabled, other} {
		require.NoError(t, p.Triggers().Save(ctx, trigger))
	}

	enabled, err := p.Triggers().EnabledForEvent(ctx, "invoice.created")
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, high.ID, enabled[0].ID)
	assert.Equal(t, low.ID, enabled[1].ID)

	none, err := p.Triggers().EnabledForEvent(ctx, "estimate.sent")
	require.NoError(t, err)
	assert.Empty(t, none)

	byDefinition, err := p.Triggers().ByDefinition(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, byDefinition, 2)

	low.Enabled = false
	require.NoError(t, p.Triggers().Save(ctx, low))

	loaded, err := p.Triggers().GetByID(ctx, low.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Enabled)

	_, err = p.Triggers().GetByID(ctx, "missing")
	assert.True(t, persistence.IsTriggerNotFound(err))

	all, err := p.Triggers().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
