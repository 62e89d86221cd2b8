package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks returns the caller's tasks, filtered and ordered per query
// parameters
func (h *TaskHandler) ListTasks(c echo.Context) error {
	userID := getUserIDFromContext(c)

	filter := ports.TaskFilter{
		Search:    c.QueryParam("search"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	if s := c.QueryParam("status"); s != "" {
		status := entities.TaskStatus(s)
		filter.Status = &status
	}
	if p := c.QueryParam("priority"); p != "" {
		priority := entities.TaskPriority(p)
		filter.Priority = &priority
	}
	if cs := c.QueryParam("completed"); cs != "" {
		completed, err := strconv.ParseBool(cs)
		if err != nil {
			return respondError(c, http.StatusBadRequest, "Invalid completed parameter")
		}
		filter.Completed = &completed
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), userID, filter)
	if err != nil {
		h.logger.Error("List tasks failed", "error", err, "user_id", userID)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Tasks retrieved successfully", tasks)
}

// GetTask returns one task owned by the caller
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.taskService.GetTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return respondOK(c, "Task retrieved successfully", task)
}

// CreateTask creates a new task at the end of the caller's list
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return respondCreated(c, "Task created successfully", task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid task ID")
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), userID, taskID, req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return respondOK(c, "Task updated successfully", task)
}

// DeleteTask permanently removes a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		return respondServiceError(c, err)
	}

	return respondOK(c, "Task deleted successfully", nil)
}

// ToggleTask flips a task's completion state
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid task ID")
	}

	task, err := h.taskService.ToggleTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return respondOK(c, "Task status toggled successfully", task)
}

// ReorderTasks applies a bulk position update
func (h *TaskHandler) ReorderTasks(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.ReorderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.TaskOrders == nil {
		return respondError(c, http.StatusBadRequest, "taskOrders must be an array")
	}

	if err := h.taskService.ReorderTasks(c.Request().Context(), userID, req.TaskOrders); err != nil {
		h.logger.Error("Reorder failed", "error", err, "user_id", userID)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Tasks reordered successfully", nil)
}
