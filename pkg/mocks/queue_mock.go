package mocks

import (
	"context"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of jobs.Queue. Options are resolved into a *jobs.Job so
// expectations can match on RunAt.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, queue string, payload map[string]any, opts ...jobs.Option) (string, error) {
	job := jobs.NewJob(queue, payload, time.Now(), opts...)
	args := m.Called(ctx, queue, payload, job.RunAt)

	return args.String(0), args.Error(1)
}
