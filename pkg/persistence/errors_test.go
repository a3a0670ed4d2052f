package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestDefinitionError(t *testing.T) {
	t.Parallel()

	err := persistence.NewDefinitionVersionError("GetVersion", "def-1", 3, persistence.ErrDefinitionNotFound)

	assert.Equal(t, "GetVersion operation failed for definition def-1 version 3: workflow definition not found", err.Error())
	assert.True(t, persistence.IsDefinitionNotFound(err))
	assert.True(t, persistence.IsNotFound(fmt.Errorf("loading: %w", err)))
	assert.False(t, persistence.IsInstanceNotFound(err))

	plain := persistence.NewDefinitionError("GetByID", "def-2", persistence.ErrDefinitionNotFound)
	assert.Equal(t, "GetByID operation failed for definition def-2: workflow definition not found", plain.Error())
}

func TestInstanceError(t *testing.T) {
	t.Parallel()

	err := persistence.NewInstanceError("Transition", "inst-1", persistence.ErrInstanceNotFound)

	assert.Equal(t, "Transition operation failed for instance inst-1: workflow instance not found", err.Error())
	assert.True(t, persistence.IsInstanceNotFound(err))
	assert.True(t, errors.Is(err, persistence.ErrInstanceNotFound))

	var target *persistence.InstanceError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "inst-1", target.InstanceID)

	assert.False(t, persistence.IsNotFound(errors.New("boom")))
}
