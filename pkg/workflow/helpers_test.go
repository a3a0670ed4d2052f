package workflow

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/condition"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/delay"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
	"github.com/Lazi-Labs/lazi-sub001/pkg/mocks"
	"github.com/Lazi-Labs/lazi-sub001/pkg/models"
	"github.com/Lazi-Labs/lazi-sub001/pkg/persistence/file"
	"github.com/Lazi-Labs/lazi-sub001/pkg/registry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// fakeHandler is an action handler whose behavior is supplied by the test.
type fakeHandler struct {
	action models.ActionType
	fn     func(ctx context.Context, data map[string]any) (map[string]any, error)

	mu    sync.Mutex
	calls []map[string]any
}

func (h *fakeHandler) Type() models.ActionType {
	return h.action
}

func (h *fakeHandler) Schema() map[string]any {
	return map[string]any{"type": "object"}
}

func (h *fakeHandler) Execute(ctx context.Context, _ *models.WorkflowInstance, _ models.Step, data map[string]any) (map[string]any, error) {
	h.mu.Lock()
	h.calls = append(h.calls, data)
	h.mu.Unlock()

	if h.fn == nil {
		return map[string]any{"ok": true}, nil
	}

	return h.fn(ctx, data)
}

func (h *fakeHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.calls)
}

type testEnv struct {
	engine      *Engine
	persistence *file.Persistence
	registry    *registry.Registry
	queue       *mocks.MockQueue
	clock       *testClock
	definitions *DefinitionService
}

func newTestEnv(t *testing.T, handlers ...*fakeHandler) *testEnv {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(logger)
	reg.Register(delay.NewHandler())
	reg.Register(condition.NewHandler(logger, nil))

	for _, handler := range handlers {
		reg.Register(handler)
	}

	queue := &mocks.MockQueue{}
	queue.On("Enqueue", mock.Anything, jobs.QueueWorkflowExecutions, mock.Anything, mock.Anything).Return("job-1", nil)

	clock := newTestClock()
	engine := NewEngine(logger, p, reg, queue, WithClock(clock.Now), WithWorkerID("worker-test"))

	return &testEnv{
		engine:      engine,
		persistence: p,
		registry:    reg,
		queue:       queue,
		clock:       clock,
		definitions: NewDefinitionService(logger, p, reg),
	}
}

// define stores an enabled definition bound to eventName.
func (env *testEnv) define(t *testing.T, eventName string, definition *models.WorkflowDefinition, priority int) *models.WorkflowDefinition {
	t.Helper()

	definition.TriggerEvent = eventName
	definition.Enabled = true

	created, err := env.definitions.Create(t.Context(), definition)
	require.NoError(t, err)

	_, err = env.definitions.BindTrigger(t.Context(), eventName, created.ID, priority)
	require.NoError(t, err)

	return created
}

// trigger fires eventName and returns the single created instance.
func (env *testEnv) trigger(t *testing.T, eventName string, eventContext map[string]any) *models.WorkflowInstance {
	t.Helper()

	instances, err := env.engine.TriggerWorkflows(t.Context(), eventName, "job", "42", eventContext)
	require.NoError(t, err)
	require.Len(t, instances, 1)

	return instances[0]
}

func (env *testEnv) instance(t *testing.T, id string) *models.WorkflowInstance {
	t.Helper()

	instance, err := env.persistence.Instances().GetByID(t.Context(), id)
	require.NoError(t, err)

	return instance
}

// enqueuedRunAts returns the RunAt of every execution job enqueued for instanceID.
func (env *testEnv) enqueuedRunAts(instanceID string) []time.Time {
	var runAts []time.Time

	for _, call := range env.queue.Calls {
		payload, _ := call.Arguments.Get(2).(map[string]any)
		if payload["instanceId"] != instanceID {
			continue
		}

		runAts = append(runAts, call.Arguments.Get(3).(time.Time))
	}

	return runAts
}

func steps(s ...models.Step) []models.Step {
	return s
}

func step(name string, action models.ActionType, config map[string]any) models.Step {
	return models.Step{Name: name, Action: action, Config: config}
}
