// Package dashboard drives a task dashboard view on top of the API
// client. It keeps a single snapshot of view state, debounces filter
// changes, tags fetches with a generation so stale responses never
// overwrite newer ones, and applies reorders optimistically with a
// snapshot to roll back to when persistence fails.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/adapters/client"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/domain/ordering"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

const defaultFilterDebounce = 500 * time.Millisecond

// API is the slice of the task API the dashboard needs. *client.Client
// satisfies it.
type API interface {
	ListTasks(ctx context.Context, filter ports.TaskFilter) ([]entities.Task, error)
	CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, taskID uuid.UUID) error
	ToggleTask(ctx context.Context, taskID uuid.UUID) (*entities.Task, error)
	ReorderTasks(ctx context.Context, orders []ports.TaskOrder) error
	GetStats(ctx context.Context) (*entities.TaskStats, error)
}

// Filters holds the user-facing filter controls. Empty string means
// "no filter" for every field.
type Filters struct {
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Completed string `json:"completed"`
	Search    string `json:"search"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

// State is the full dashboard view state. It is a value: every copy
// handed out owns its slices.
type State struct {
	Tasks          []entities.Task     `json:"tasks"`
	Stats          *entities.TaskStats `json:"stats"`
	Filters        Filters             `json:"filters"`
	Loading        bool                `json:"loading"`
	FormOpen       bool                `json:"formOpen"`
	EditingTaskID  *uuid.UUID          `json:"editingTaskId"`
	Error          string              `json:"error"`
	SessionExpired bool                `json:"sessionExpired"`
}

// Controller owns the dashboard state and serializes every change.
type Controller struct {
	api    API
	logger *logger.Logger

	mu            sync.Mutex
	state         State
	fetchGen      uint64
	dragSnapshot  []entities.Task
	debounce      *time.Timer
	debounceDelay time.Duration
	onChange      func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce overrides the filter debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounceDelay = d
	}
}

// WithOnChange registers a callback invoked with a state copy after
// every change.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New creates a dashboard controller.
func New(api API, appLogger *logger.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:           api,
		logger:        appLogger,
		debounceDelay: defaultFilterDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Tasks = append([]entities.Task(nil), c.state.Tasks...)
	if c.state.Stats != nil {
		stats := *c.state.Stats
		s.Stats = &stats
	}
	if c.state.EditingTaskID != nil {
		id := *c.state.EditingTaskID
		s.EditingTaskID = &id
	}
	return s
}

func (c *Controller) notifyLocked() {
	if c.onChange == nil {
		return
	}
	snapshot := c.snapshotLocked()
	fn := c.onChange
	c.mu.Unlock()
	fn(snapshot)
	c.mu.Lock()
}

// Refresh reloads the task list and stats with the current filters.
func (c *Controller) Refresh(ctx context.Context) {
	c.fetchTasks(ctx)
	c.refreshStats(ctx)
}

// fetchTasks loads the task list under a fresh generation. A response
// belonging to an older generation is dropped: a slow early request
// must never clobber the result of a later one.
func (c *Controller) fetchTasks(ctx context.Context) {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	filter := c.state.Filters.toTaskFilter()
	c.state.Loading = true
	c.notifyLocked()
	c.mu.Unlock()

	tasks, err := c.api.ListTasks(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.fetchGen {
		return
	}
	c.state.Loading = false
	if err != nil {
		c.applyErrorLocked(err, "Failed to load tasks")
		c.notifyLocked()
		return
	}
	c.state.Tasks = tasks
	c.state.Error = ""
	c.notifyLocked()
}

// refreshStats reloads the aggregate numbers. Failures are logged and
// otherwise silent so a stats hiccup never disturbs the task list.
func (c *Controller) refreshStats(ctx context.Context) {
	stats, err := c.api.GetStats(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			c.state.SessionExpired = true
			c.notifyLocked()
		} else {
			c.logger.Warn("Failed to refresh stats", "error", err)
		}
		return
	}
	c.state.Stats = stats
	c.notifyLocked()
}

// SetFilters replaces the filter controls and schedules a debounced
// reload.
func (c *Controller) SetFilters(ctx context.Context, filters Filters) {
	c.mu.Lock()
	c.state.Filters = filters
	c.notifyLocked()
	c.scheduleFetchLocked(ctx)
	c.mu.Unlock()
}

// SetSearch updates the search box and schedules a debounced reload.
func (c *Controller) SetSearch(ctx context.Context, query string) {
	c.mu.Lock()
	c.state.Filters.Search = query
	c.notifyLocked()
	c.scheduleFetchLocked(ctx)
	c.mu.Unlock()
}

func (c *Controller) scheduleFetchLocked(ctx context.Context) {
	if c.debounce != nil {
		c.debounce.Stop()
	}
	if c.debounceDelay <= 0 {
		go c.fetchTasks(ctx)
		return
	}
	c.debounce = time.AfterFunc(c.debounceDelay, func() {
		c.fetchTasks(ctx)
	})
}

// OpenForm opens the task form for creation.
func (c *Controller) OpenForm() {
	c.mu.Lock()
	c.state.FormOpen = true
	c.state.EditingTaskID = nil
	c.notifyLocked()
	c.mu.Unlock()
}

// EditTask opens the task form pre-filled for an existing task.
func (c *Controller) EditTask(taskID uuid.UUID) {
	c.mu.Lock()
	c.state.FormOpen = true
	c.state.EditingTaskID = &taskID
	c.notifyLocked()
	c.mu.Unlock()
}

// CloseForm dismisses the task form.
func (c *Controller) CloseForm() {
	c.mu.Lock()
	c.state.FormOpen = false
	c.state.EditingTaskID = nil
	c.notifyLocked()
	c.mu.Unlock()
}

// Create persists a new task, appends the stored record to the list
// and refreshes stats in the background.
func (c *Controller) Create(ctx context.Context, req ports.CreateTaskRequest) error {
	task, err := c.api.CreateTask(ctx, req)
	if err != nil {
		c.reportError(err, "Failed to create task")
		return err
	}

	c.mu.Lock()
	c.state.Tasks = append(c.state.Tasks, *task)
	c.state.FormOpen = false
	c.state.EditingTaskID = nil
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()

	go c.refreshStats(ctx)
	return nil
}

// Update persists a partial update and patches the stored record into
// the list.
func (c *Controller) Update(ctx context.Context, taskID uuid.UUID, req ports.UpdateTaskRequest) error {
	task, err := c.api.UpdateTask(ctx, taskID, req)
	if err != nil {
		c.reportError(err, "Failed to update task")
		return err
	}

	c.mu.Lock()
	c.replaceTaskLocked(*task)
	c.state.FormOpen = false
	c.state.EditingTaskID = nil
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()

	go c.refreshStats(ctx)
	return nil
}

// Delete removes a task.
func (c *Controller) Delete(ctx context.Context, taskID uuid.UUID) error {
	if err := c.api.DeleteTask(ctx, taskID); err != nil {
		c.reportError(err, "Failed to delete task")
		return err
	}

	c.mu.Lock()
	for i, t := range c.state.Tasks {
		if t.ID == taskID {
			c.state.Tasks = append(c.state.Tasks[:i], c.state.Tasks[i+1:]...)
			break
		}
	}
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()

	go c.refreshStats(ctx)
	return nil
}

// Toggle flips a task's completion and patches the stored record into
// the list.
func (c *Controller) Toggle(ctx context.Context, taskID uuid.UUID) error {
	task, err := c.api.ToggleTask(ctx, taskID)
	if err != nil {
		c.reportError(err, "Failed to toggle task")
		return err
	}

	c.mu.Lock()
	c.replaceTaskLocked(*task)
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()

	go c.refreshStats(ctx)
	return nil
}

// MoveTask handles a drag from source to destination. The list is
// updated immediately; if the server rejects the new order the
// pre-drag snapshot is restored.
func (c *Controller) MoveTask(ctx context.Context, source, destination int) error {
	c.mu.Lock()
	snapshot := append([]entities.Task(nil), c.state.Tasks...)
	moved, err := ordering.Move(c.state.Tasks, source, destination)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if source == destination {
		c.mu.Unlock()
		return nil
	}

	positions := ordering.Positions(moved)
	for i := range moved {
		moved[i].SortOrder = positions[i].SortOrder
	}
	c.dragSnapshot = snapshot
	c.state.Tasks = moved
	c.notifyLocked()
	c.mu.Unlock()

	orders := make([]ports.TaskOrder, len(positions))
	for i, p := range positions {
		orders[i] = ports.TaskOrder{ID: p.ID, SortOrder: p.SortOrder}
	}

	if err := c.api.ReorderTasks(ctx, orders); err != nil {
		c.mu.Lock()
		c.state.Tasks = snapshot
		c.dragSnapshot = nil
		c.applyErrorLocked(err, "Failed to save task order")
		c.notifyLocked()
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.dragSnapshot = nil
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()
	return nil
}

// ClearError dismisses the current error message.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.state.Error = ""
	c.notifyLocked()
	c.mu.Unlock()
}

func (c *Controller) replaceTaskLocked(task entities.Task) {
	for i, t := range c.state.Tasks {
		if t.ID == task.ID {
			c.state.Tasks[i] = task
			return
		}
	}
}

func (c *Controller) reportError(err error, message string) {
	c.mu.Lock()
	c.applyErrorLocked(err, message)
	c.notifyLocked()
	c.mu.Unlock()
}

// applyErrorLocked routes an API failure into state. An expired
// session flips SessionExpired without surfacing an error message.
func (c *Controller) applyErrorLocked(err error, message string) {
	if errors.Is(err, client.ErrUnauthorized) {
		c.state.SessionExpired = true
		return
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		c.state.Error = apiErr.Message
		return
	}
	c.logger.Warn("Dashboard request failed", "error", err)
	c.state.Error = message
}

func (f Filters) toTaskFilter() ports.TaskFilter {
	filter := ports.TaskFilter{
		Search:    f.Search,
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
	}
	if f.Status != "" {
		status := entities.TaskStatus(f.Status)
		filter.Status = &status
	}
	if f.Priority != "" {
		priority := entities.TaskPriority(f.Priority)
		filter.Priority = &priority
	}
	switch f.Completed {
	case "true":
		v := true
		filter.Completed = &v
	case "false":
		v := false
		filter.Completed = &v
	}
	return filter
}
