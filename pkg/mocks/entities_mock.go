package mocks

import (
	"context"

	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/stretchr/testify/mock"
)

// MockEntityStore is a mock implementation of entities.Store.
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) Fetch(ctx context.Context, entityType, entityID string) (map[string]any, error) {
	args := m.Called(ctx, entityType, entityID)

	row, _ := args.Get(0).(map[string]any)

	return row, args.Error(1)
}

func (m *MockEntityStore) UpdateStage(ctx context.Context, update entities.StageUpdate) error {
	args := m.Called(ctx, update)

	return args.Error(0)
}

func (m *MockEntityStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
