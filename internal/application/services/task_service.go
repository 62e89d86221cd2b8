package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000

	statsCacheTTL = 30 * time.Second
)

// TaskService handles task-related operations scoped to the owning user
type TaskService struct {
	taskRepo ports.TaskRepository
	cache    ports.CacheRepository
	logger   *logger.Logger
}

// NewTaskService creates a new task service. The cache is optional;
// pass nil to disable stats caching.
func NewTaskService(taskRepo ports.TaskRepository, cache ports.CacheRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		cache:    cache,
		logger:   logger,
	}
}

// ListTasks retrieves the caller's tasks with filtering and ordering
func (s *TaskService) ListTasks(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]entities.Task, error) {
	tasks, err := s.taskRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTask retrieves one task owned by the caller
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// CreateTask validates the request and appends a new task to the end
// of the caller's list
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	title := strings.TrimSpace(req.Title)

	verr := &ports.ValidationError{}
	if title == "" {
		verr.Add("title", "title is required")
	} else if len(title) > maxTitleLength {
		verr.Add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLength {
		verr.Add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if req.Status != nil && !req.Status.IsValid() {
		verr.Add("status", "invalid status")
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		verr.Add("priority", "invalid priority")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	status := entities.TaskStatusPending
	if req.Status != nil {
		status = *req.Status
	}
	priority := entities.TaskPriorityMedium
	if req.Priority != nil {
		priority = *req.Priority
	}

	// New tasks go to the end of the list. Positions freed by deletes
	// are not reused; reordering re-derives them densely anyway.
	count, err := s.taskRepo.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	now := time.Now()
	task := &entities.Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
		SortOrder:   int(count),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidateStats(ctx, userID)
	s.logger.Info("Task created", "task_id", task.ID, "user_id", userID, "title", task.Title)

	return task, nil
}

// UpdateTask applies a partial update to a task owned by the caller.
// Setting completed also drives the status and completion timestamp;
// an explicitly supplied status loses to completed=true.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	verr := &ports.ValidationError{}
	var title string
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
		if title == "" {
			verr.Add("title", "title must not be empty")
		} else if len(title) > maxTitleLength {
			verr.Add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
		}
	}
	if req.Description.Set && req.Description.Valid && len(req.Description.Value) > maxDescriptionLength {
		verr.Add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))
	}
	if req.Status != nil && !req.Status.IsValid() {
		verr.Add("status", "invalid status")
	}
	if req.Priority != nil && !req.Priority.IsValid() {
		verr.Add("priority", "invalid priority")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = title
	}
	if req.Description.Set {
		if req.Description.Valid && req.Description.Value != "" {
			desc := req.Description.Value
			task.Description = &desc
		} else {
			task.Description = nil
		}
	}
	if req.Status != nil {
		task.Status = *req.Status
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate.Set {
		if req.DueDate.Valid {
			due := req.DueDate.Value
			task.DueDate = &due
		} else {
			task.DueDate = nil
		}
	}
	if req.Completed != nil {
		task.SetCompleted(*req.Completed, time.Now())
	}
	task.UpdatedAt = time.Now()

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidateStats(ctx, userID)
	s.logger.Info("Task updated", "task_id", updated.ID, "user_id", userID)

	return updated, nil
}

// DeleteTask permanently removes a task owned by the caller
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		return err
	}

	s.invalidateStats(ctx, userID)
	s.logger.Info("Task deleted", "task_id", taskID, "user_id", userID)

	return nil
}

// ToggleTask flips the completion flag with the full completion
// transition applied
func (s *TaskService) ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	task.SetCompleted(!task.Completed, time.Now())
	task.UpdatedAt = time.Now()

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle task: %w", err)
	}

	s.invalidateStats(ctx, userID)
	s.logger.Info("Task toggled", "task_id", updated.ID, "user_id", userID, "completed", updated.Completed)

	return updated, nil
}

// ReorderTasks applies a batch of sort positions to the caller's
// tasks. Entries referring to tasks the caller does not own are
// silently skipped so a stale client cannot fail the whole batch, and
// one failing entry does not stop the rest. Each entry writes a
// disjoint row, so the updates run concurrently.
func (s *TaskService) ReorderTasks(ctx context.Context, userID uuid.UUID, orders []ports.TaskOrder) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var skipped, failed int

	for _, order := range orders {
		order := order
		wg.Add(1)
		go func() {
			defer wg.Done()

			updated, err := s.taskRepo.UpdateSortOrder(ctx, userID, order.ID, order.SortOrder)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failed++
				s.logger.Warn("Reorder entry failed", "task_id", order.ID, "user_id", userID, "error", err)
			case !updated:
				skipped++
			}
		}()
	}
	wg.Wait()

	s.logger.Info("Tasks reordered", "user_id", userID, "entries", len(orders), "skipped", skipped, "failed", failed)

	return nil
}

// GetStats derives aggregate statistics for the caller's tasks
func (s *TaskService) GetStats(ctx context.Context, userID uuid.UUID) (*entities.TaskStats, error) {
	cacheKey := statsCacheKey(userID)
	if s.cache != nil {
		var cached entities.TaskStats
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.taskRepo.Stats(ctx, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if stats.TotalTasks > 0 {
		rate := float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
		stats.CompletionRate = math.Round(rate*10) / 10
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, statsCacheTTL); err != nil {
			s.logger.Warn("Failed to cache stats", "user_id", userID, "error", err)
		}
	}

	return stats, nil
}

func (s *TaskService) invalidateStats(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate stats cache", "user_id", userID, "error", err)
	}
}

func statsCacheKey(userID uuid.UUID) string {
	return "stats:" + userID.String()
}
