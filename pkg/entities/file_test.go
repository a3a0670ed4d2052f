package entities_test

import (
	"context"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	t.Parallel()

	table, err := entities.Table(entities.TypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, "master.invoices", table)

	_, err = entities.Table("vehicle")
	require.ErrorIs(t, err, entities.ErrUnknownEntityType)
}

func TestFileStore_FetchAndStage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := entities.NewFileStore("file://" + t.TempDir())

	require.NoError(t, store.Put(entities.TypeJob, "1001", map[string]any{"st_id": "1001", "status": "scheduled", "customer_id": "42"}))
	require.NoError(t, store.Put(entities.TypeCustomer, "42", map[string]any{"st_id": "42", "phone": "+15550100"}))

	job, err := store.Fetch(ctx, entities.TypeJob, "1001")
	require.NoError(t, err)
	assert.Equal(t, "scheduled", job["status"])

	customer, err := entities.CustomerOf(ctx, store, entities.TypeJob, job)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", customer["phone"])

	_, err = store.Fetch(ctx, entities.TypeJob, "9999")
	require.ErrorIs(t, err, entities.ErrEntityNotFound)

	_, err = store.Fetch(ctx, "vehicle", "1")
	require.ErrorIs(t, err, entities.ErrUnknownEntityType)

	_, err = store.Fetch(ctx, entities.TypeJob, "../secrets")
	require.Error(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpdateStage(ctx, entities.StageUpdate{
		EntityType: entities.TypeJob,
		EntityID:   "1001",
		Stage:      "completed",
		UpdatedAt:  now,
	}))

	stage, err := store.Stage(entities.TypeJob, "1001")
	require.NoError(t, err)
	assert.Equal(t, "completed", stage.Stage)
	assert.True(t, now.Equal(stage.UpdatedAt))
}

func TestCustomerOf_MissingCustomerID(t *testing.T) {
	t.Parallel()

	store := entities.NewFileStore(t.TempDir())

	_, err := entities.CustomerOf(context.Background(), store, entities.TypeInvoice, map[string]any{"st_id": "5"})
	require.ErrorIs(t, err, entities.ErrEntityNotFound)

	row := map[string]any{"st_id": "7"}
	same, err := entities.CustomerOf(context.Background(), store, entities.TypeCustomer, row)
	require.NoError(t, err)
	assert.Equal(t, row, same)
}
