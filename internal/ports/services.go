package ports

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService interface for user profile operations
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

// TaskService interface for task operations. Every method is scoped to
// the calling user; a task owned by someone else behaves exactly like
// a missing task.
type TaskService interface {
	ListTasks(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]entities.Task, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	CreateTask(ctx context.Context, userID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	ToggleTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	ReorderTasks(ctx context.Context, userID uuid.UUID, orders []TaskOrder) error
	GetStats(ctx context.Context, userID uuid.UUID) (*entities.TaskStats, error)
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	TokenType    string         `json:"tokenType"`
	ExpiresIn    int64          `json:"expiresIn"`
	User         *entities.User `json:"user"`
}

type Claims struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

// Task related types
type CreateTaskRequest struct {
	Title       string                 `json:"title" validate:"required,max=200"`
	Description *string                `json:"description" validate:"omitempty,max=1000"`
	Status      *entities.TaskStatus   `json:"status"`
	Priority    *entities.TaskPriority `json:"priority"`
	DueDate     *time.Time             `json:"dueDate"`
}

// UpdateTaskRequest carries a partial update. Pointer fields left nil
// are untouched; Optional fields distinguish an absent key from an
// explicit null, which clears the stored value.
type UpdateTaskRequest struct {
	Title       *string                `json:"title" validate:"omitempty,max=200"`
	Description Optional[string]       `json:"description"`
	Status      *entities.TaskStatus   `json:"status"`
	Priority    *entities.TaskPriority `json:"priority"`
	DueDate     Optional[time.Time]    `json:"dueDate"`
	Completed   *bool                  `json:"completed"`
}

// TaskOrder assigns a sort position to one task in a reorder batch.
type TaskOrder struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SortOrder int       `json:"sortOrder" validate:"min=0"`
}

type ReorderRequest struct {
	TaskOrders []TaskOrder `json:"taskOrders" validate:"required,dive"`
}

// Profile is the current user plus their task count.
type Profile struct {
	entities.User
	TaskCount int64 `json:"taskCount"`
}

// Optional wraps a JSON value that may be absent, null, or set.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// NewOptional returns a present, non-null Optional.
func NewOptional[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// NullOptional returns a present but explicitly null Optional.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field input failures. It is rejected
// before any store mutation happens.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add appends a field failure and returns the error for chaining.
func (e *ValidationError) Add(field, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
