package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/ports"
)

// taskSortColumns whitelists user-supplied sort fields. Anything not
// listed here falls back to creation-time ordering.
var taskSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"priority":  "priority",
	"status":    "status",
	"dueDate":   "due_date",
	"sortOrder": "sort_order",
}

// likeEscaper neutralizes LIKE metacharacters so search text matches
// literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority, due_date,
			completed, completed_at, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.Completed, task.CompletedAt, task.SortOrder,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	query := `
		SELECT id, user_id, title, description, status, priority, due_date,
			completed, completed_at, sort_order, created_at, updated_at
		FROM tasks
		WHERE id = $1 AND user_id = $2`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, taskID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

// Update writes all mutable fields. The owner scope in the WHERE
// clause makes the ownership check and the write one atomic statement.
func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, due_date = $7,
			completed = $8, completed_at = $9, updated_at = $10
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, description, status, priority, due_date,
			completed, completed_at, sort_order, created_at, updated_at`

	var updated entities.Task
	err := r.db.QueryRowxContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.Completed, task.CompletedAt, task.UpdatedAt,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	return &updated, nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if affected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]entities.Task, error) {
	var conditions []string
	args := []interface{}{userID}

	conditions = append(conditions, "user_id = $1")

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		conditions = append(conditions, fmt.Sprintf("completed = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLikePattern(filter.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, n, n))
	}

	column, ok := taskSortColumns[filter.SortBy]
	direction := "DESC"
	if !ok {
		column = "created_at"
	} else if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, title, description, status, priority, due_date,
			completed, completed_at, sort_order, created_at, updated_at
		FROM tasks
		WHERE %s
		ORDER BY %s %s, created_at DESC`,
		strings.Join(conditions, " AND "), column, direction)

	tasks := []entities.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM tasks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) UpdateSortOrder(ctx context.Context, userID, taskID uuid.UUID, sortOrder int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET sort_order = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`,
		taskID, userID, sortOrder, time.Now())
	if err != nil {
		return false, fmt.Errorf("update sort order: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update sort order: %w", err)
	}

	return affected > 0, nil
}

func (r *TaskRepositoryImpl) Stats(ctx context.Context, userID uuid.UUID, now time.Time) (*entities.TaskStats, error) {
	stats := &entities.TaskStats{StatusBreakdown: make(map[entities.TaskStatus]int64)}

	counts := struct {
		Total     int64 `db:"total"`
		Completed int64 `db:"completed"`
		Overdue   int64 `db:"overdue"`
	}{}
	err := r.db.GetContext(ctx, &counts, `
		SELECT COUNT(*) AS total,
			COUNT(*) FILTER (WHERE completed) AS completed,
			COUNT(*) FILTER (WHERE NOT completed AND due_date < $2) AS overdue
		FROM tasks
		WHERE user_id = $1`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	stats.TotalTasks = counts.Total
	stats.CompletedTasks = counts.Completed
	stats.OverdueTasks = counts.Overdue

	rows, err := r.db.QueryxContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM tasks
		WHERE user_id = $1
		GROUP BY status`, userID)
	if err != nil {
		return nil, fmt.Errorf("task stats breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status entities.TaskStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("task stats breakdown: %w", err)
		}
		stats.StatusBreakdown[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task stats breakdown: %w", err)
	}

	return stats, nil
}
