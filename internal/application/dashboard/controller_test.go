package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/core/internal/adapters/client"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/config"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

type stubAPI struct {
	mu sync.Mutex

	listFn    func(ports.TaskFilter) ([]entities.Task, error)
	statsFn   func() (*entities.TaskStats, error)
	reorderFn func([]ports.TaskOrder) error
	createFn  func(ports.CreateTaskRequest) (*entities.Task, error)
	updateFn  func(uuid.UUID, ports.UpdateTaskRequest) (*entities.Task, error)
	deleteFn  func(uuid.UUID) error
	toggleFn  func(uuid.UUID) (*entities.Task, error)

	listCalls    []ports.TaskFilter
	reorderCalls [][]ports.TaskOrder
}

func (s *stubAPI) ListTasks(_ context.Context, filter ports.TaskFilter) ([]entities.Task, error) {
	s.mu.Lock()
	s.listCalls = append(s.listCalls, filter)
	fn := s.listFn
	s.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(filter)
}

func (s *stubAPI) CreateTask(_ context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if s.createFn == nil {
		return &entities.Task{ID: uuid.New(), Title: req.Title}, nil
	}
	return s.createFn(req)
}

func (s *stubAPI) UpdateTask(_ context.Context, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if s.updateFn == nil {
		return &entities.Task{ID: taskID}, nil
	}
	return s.updateFn(taskID, req)
}

func (s *stubAPI) DeleteTask(_ context.Context, taskID uuid.UUID) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(taskID)
}

func (s *stubAPI) ToggleTask(_ context.Context, taskID uuid.UUID) (*entities.Task, error) {
	if s.toggleFn == nil {
		return &entities.Task{ID: taskID, Completed: true}, nil
	}
	return s.toggleFn(taskID)
}

func (s *stubAPI) ReorderTasks(_ context.Context, orders []ports.TaskOrder) error {
	s.mu.Lock()
	s.reorderCalls = append(s.reorderCalls, orders)
	fn := s.reorderFn
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(orders)
}

func (s *stubAPI) GetStats(_ context.Context) (*entities.TaskStats, error) {
	if s.statsFn == nil {
		return &entities.TaskStats{}, nil
	}
	return s.statsFn()
}

func (s *stubAPI) listCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listCalls)
}

func (s *stubAPI) lastListCall() ports.TaskFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls[len(s.listCalls)-1]
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func makeTasks(titles ...string) []entities.Task {
	tasks := make([]entities.Task, len(titles))
	for i, title := range titles {
		tasks[i] = entities.Task{ID: uuid.New(), Title: title, SortOrder: i}
	}
	return tasks
}

func TestRefreshLoadsTasksAndStats(t *testing.T) {
	tasks := makeTasks("one", "two")
	api := &stubAPI{
		listFn: func(ports.TaskFilter) ([]entities.Task, error) {
			return tasks, nil
		},
		statsFn: func() (*entities.TaskStats, error) {
			return &entities.TaskStats{TotalTasks: 2}, nil
		},
	}
	ctrl := New(api, newTestLogger(t))

	ctrl.Refresh(context.Background())

	state := ctrl.State()
	assert.Len(t, state.Tasks, 2)
	assert.False(t, state.Loading)
	require.NotNil(t, state.Stats)
	assert.Equal(t, int64(2), state.Stats.TotalTasks)
	assert.Empty(t, state.Error)
}

func TestMoveTaskOptimisticSuccess(t *testing.T) {
	tasks := makeTasks("a", "b", "c")
	api := &stubAPI{}
	ctrl := New(api, newTestLogger(t))
	ctrl.mu.Lock()
	ctrl.state.Tasks = append([]entities.Task(nil), tasks...)
	ctrl.mu.Unlock()

	require.NoError(t, ctrl.MoveTask(context.Background(), 0, 2))

	state := ctrl.State()
	require.Len(t, state.Tasks, 3)
	assert.Equal(t, "b", state.Tasks[0].Title)
	assert.Equal(t, "c", state.Tasks[1].Title)
	assert.Equal(t, "a", state.Tasks[2].Title)
	for i, task := range state.Tasks {
		assert.Equal(t, i, task.SortOrder)
	}

	require.Len(t, api.reorderCalls, 1)
	orders := api.reorderCalls[0]
	require.Len(t, orders, 3)
	assert.Equal(t, tasks[1].ID, orders[0].ID)
	assert.Equal(t, tasks[0].ID, orders[2].ID)
	assert.Equal(t, 2, orders[2].SortOrder)
}

func TestMoveTaskRollbackOnFailure(t *testing.T) {
	tasks := makeTasks("a", "b", "c")
	api := &stubAPI{
		reorderFn: func([]ports.TaskOrder) error {
			return &client.APIError{Status: 500, Message: "Internal server error"}
		},
	}
	ctrl := New(api, newTestLogger(t))
	ctrl.mu.Lock()
	ctrl.state.Tasks = append([]entities.Task(nil), tasks...)
	ctrl.mu.Unlock()

	err := ctrl.MoveTask(context.Background(), 2, 0)
	require.Error(t, err)

	state := ctrl.State()
	require.Len(t, state.Tasks, 3)
	assert.Equal(t, "a", state.Tasks[0].Title)
	assert.Equal(t, "b", state.Tasks[1].Title)
	assert.Equal(t, "c", state.Tasks[2].Title)
	assert.Equal(t, "Internal server error", state.Error)
}

func TestMoveTaskOutOfRangeLeavesStateAlone(t *testing.T) {
	tasks := makeTasks("a", "b")
	api := &stubAPI{}
	ctrl := New(api, newTestLogger(t))
	ctrl.mu.Lock()
	ctrl.state.Tasks = append([]entities.Task(nil), tasks...)
	ctrl.mu.Unlock()

	err := ctrl.MoveTask(context.Background(), 0, 5)
	require.Error(t, err)
	assert.Empty(t, api.reorderCalls)

	state := ctrl.State()
	assert.Equal(t, "a", state.Tasks[0].Title)
	assert.Equal(t, "b", state.Tasks[1].Title)
}

func TestStaleFetchDropped(t *testing.T) {
	slowTasks := makeTasks("stale")
	freshTasks := makeTasks("fresh")
	release := make(chan struct{})
	api := &stubAPI{}
	first := true
	var mu sync.Mutex
	api.listFn = func(ports.TaskFilter) ([]entities.Task, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			<-release
			return slowTasks, nil
		}
		return freshTasks, nil
	}
	ctrl := New(api, newTestLogger(t))

	done := make(chan struct{})
	go func() {
		ctrl.fetchTasks(context.Background())
		close(done)
	}()

	// Wait until the slow request is in flight, then issue a newer one.
	require.Eventually(t, func() bool {
		return api.listCallCount() == 1
	}, time.Second, time.Millisecond)

	ctrl.fetchTasks(context.Background())
	close(release)
	<-done

	state := ctrl.State()
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, "fresh", state.Tasks[0].Title)
}

func TestSessionExpiryIsSilent(t *testing.T) {
	api := &stubAPI{
		listFn: func(ports.TaskFilter) ([]entities.Task, error) {
			return nil, client.ErrUnauthorized
		},
		statsFn: func() (*entities.TaskStats, error) {
			return nil, client.ErrUnauthorized
		},
	}
	ctrl := New(api, newTestLogger(t))

	ctrl.Refresh(context.Background())

	state := ctrl.State()
	assert.True(t, state.SessionExpired)
	assert.Empty(t, state.Error)
}

func TestFilterChangesAreDebounced(t *testing.T) {
	api := &stubAPI{}
	ctrl := New(api, newTestLogger(t), WithDebounce(20*time.Millisecond))
	ctx := context.Background()

	ctrl.SetSearch(ctx, "m")
	ctrl.SetSearch(ctx, "mi")
	ctrl.SetSearch(ctx, "milk")

	require.Eventually(t, func() bool {
		return api.listCallCount() == 1
	}, time.Second, time.Millisecond)
	// Give a coalesced-away fetch a chance to fire if the debounce leaked.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, api.listCallCount())
	assert.Equal(t, "milk", api.lastListCall().Search)
}

func TestCreateAppendsAndClosesForm(t *testing.T) {
	created := entities.Task{ID: uuid.New(), Title: "new task", SortOrder: 1}
	api := &stubAPI{
		createFn: func(ports.CreateTaskRequest) (*entities.Task, error) {
			return &created, nil
		},
	}
	ctrl := New(api, newTestLogger(t))
	ctrl.OpenForm()

	require.NoError(t, ctrl.Create(context.Background(), ports.CreateTaskRequest{Title: "new task"}))

	state := ctrl.State()
	require.Len(t, state.Tasks, 1)
	assert.Equal(t, created.ID, state.Tasks[0].ID)
	assert.False(t, state.FormOpen)
}

func TestTogglePatchesStoredRecord(t *testing.T) {
	tasks := makeTasks("a", "b")
	toggled := tasks[1]
	toggled.Completed = true
	toggled.Status = entities.TaskStatusCompleted
	api := &stubAPI{
		toggleFn: func(uuid.UUID) (*entities.Task, error) {
			return &toggled, nil
		},
	}
	ctrl := New(api, newTestLogger(t))
	ctrl.mu.Lock()
	ctrl.state.Tasks = append([]entities.Task(nil), tasks...)
	ctrl.mu.Unlock()

	require.NoError(t, ctrl.Toggle(context.Background(), tasks[1].ID))

	state := ctrl.State()
	assert.False(t, state.Tasks[0].Completed)
	assert.True(t, state.Tasks[1].Completed)
	assert.Equal(t, entities.TaskStatusCompleted, state.Tasks[1].Status)
}

func TestDeleteRemovesTask(t *testing.T) {
	tasks := makeTasks("a", "b", "c")
	api := &stubAPI{}
	ctrl := New(api, newTestLogger(t))
	ctrl.mu.Lock()
	ctrl.state.Tasks = append([]entities.Task(nil), tasks...)
	ctrl.mu.Unlock()

	require.NoError(t, ctrl.Delete(context.Background(), tasks[1].ID))

	state := ctrl.State()
	require.Len(t, state.Tasks, 2)
	assert.Equal(t, "a", state.Tasks[0].Title)
	assert.Equal(t, "c", state.Tasks[1].Title)
}

func TestOnChangeReceivesCopies(t *testing.T) {
	api := &stubAPI{
		listFn: func(ports.TaskFilter) ([]entities.Task, error) {
			return makeTasks("one"), nil
		},
	}
	var mu sync.Mutex
	var seen []State
	ctrl := New(api, newTestLogger(t), WithOnChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}))

	ctrl.fetchTasks(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	last := seen[len(seen)-1]
	require.Len(t, last.Tasks, 1)
	last.Tasks[0].Title = "mutated"
	assert.Equal(t, "one", ctrl.State().Tasks[0].Title)
}
