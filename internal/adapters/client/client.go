// Package client is a Go client for the task API. It speaks the
// response envelope used by every endpoint and surfaces expired
// sessions as ErrUnauthorized so callers can treat them separately
// from ordinary failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/ports"
)

// ErrUnauthorized is returned when the server rejects the bearer
// token. Callers refreshing data in the background typically handle
// it silently instead of reporting it.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is a non-2xx response decoded from the envelope.
type APIError struct {
	Status  int
	Message string
	Fields  []ports.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api error (status %d): %s", e.Status, e.Message)
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data,omitempty"`
	Errors  []ports.FieldError `json:"errors,omitempty"`
}

// Client calls the task API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Register creates an account and stores the returned access token.
func (c *Client) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResponse, error) {
	var resp ports.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Login authenticates and stores the returned access token.
func (c *Client) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	var resp ports.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var resp ports.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, body, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return &resp, nil
}

// Logout revokes the current session server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

// GetProfile fetches the current user's profile.
func (c *Client) GetProfile(ctx context.Context) (*ports.Profile, error) {
	var profile ports.Profile
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListTasks fetches the caller's tasks with the given filter.
func (c *Client) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]entities.Task, error) {
	query := url.Values{}
	if filter.Status != nil {
		query.Set("status", string(*filter.Status))
	}
	if filter.Priority != nil {
		query.Set("priority", string(*filter.Priority))
	}
	if filter.Completed != nil {
		query.Set("completed", strconv.FormatBool(*filter.Completed))
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.SortBy != "" {
		query.Set("sortBy", filter.SortBy)
	}
	if filter.SortOrder != "" {
		query.Set("sortOrder", filter.SortOrder)
	}

	var tasks []entities.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task.
func (c *Client) GetTask(ctx context.Context, taskID uuid.UUID) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+taskID.String(), nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task at the end of the caller's list.
func (c *Client) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial update and returns the stored task.
func (c *Client) UpdateTask(ctx context.Context, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID.String(), nil, req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+taskID.String(), nil, nil, nil)
}

// ToggleTask flips a task's completion state.
func (c *Client) ToggleTask(ctx context.Context, taskID uuid.UUID) (*entities.Task, error) {
	var task entities.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+taskID.String()+"/toggle", nil, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ReorderTasks persists a batch of sort positions.
func (c *Client) ReorderTasks(ctx context.Context, orders []ports.TaskOrder) error {
	req := ports.ReorderRequest{TaskOrders: orders}
	return c.do(ctx, http.MethodPatch, "/api/tasks/reorder", nil, req, nil)
}

// GetStats fetches the caller's aggregate task statistics.
func (c *Client) GetStats(ctx context.Context) (*entities.TaskStats, error) {
	var stats entities.TaskStats
	if err := c.do(ctx, http.MethodGet, "/api/users/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// do sends one request and decodes the envelope into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("client: decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &APIError{
			Status:  resp.StatusCode,
			Message: env.Message,
			Fields:  env.Errors,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("client: decode data: %w", err)
		}
	}
	return nil
}
