package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles account creation
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("Registration failed", "error", err, "email", req.Email)
		return respondServiceError(c, err)
	}

	return respondCreated(c, "User registered successfully", response)
}

// Login handles user login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.Warn("Login failed", "error", err, "email", req.Email)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Login successful", response)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "Invalid request format")
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	return respondOK(c, "Token refreshed successfully", response)
}

// Logout revokes the caller's refresh tokens
func (h *AuthHandler) Logout(c echo.Context) error {
	userID := getUserIDFromContext(c)

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		h.logger.Error("Logout failed", "error", err, "user_id", userID)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Logged out successfully", nil)
}

// UserHandler handles user-related requests
type UserHandler struct {
	userService ports.UserService
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, taskService ports.TaskService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		taskService: taskService,
		logger:      logger,
	}
}

// GetProfile returns the current user with their task count
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID := getUserIDFromContext(c)

	profile, err := h.userService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Get profile failed", "error", err, "user_id", userID)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Profile retrieved successfully", profile)
}

// GetStats returns aggregate statistics for the current user's tasks
func (h *UserHandler) GetStats(c echo.Context) error {
	userID := getUserIDFromContext(c)

	stats, err := h.taskService.GetStats(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Get stats failed", "error", err, "user_id", userID)
		return respondServiceError(c, err)
	}

	return respondOK(c, "Stats retrieved successfully", stats)
}

// getUserIDFromContext extracts the authenticated user set by the auth
// middleware
func getUserIDFromContext(c echo.Context) uuid.UUID {
	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// RefreshTokenRequest carries the refresh token exchange body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}
