package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/ports"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    interface{}        `json:"data,omitempty"`
	Errors  []ports.FieldError `json:"errors,omitempty"`
}

func respondOK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondCreated(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

// respondServiceError maps domain and validation errors onto the
// envelope. Raw storage errors never reach the client; only a generic
// message does.
func respondServiceError(c echo.Context, err error) error {
	var verr *ports.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "Validation errors",
			Errors:  verr.Fields,
		})
	case errors.Is(err, entities.ErrTaskNotFound):
		return respondError(c, http.StatusNotFound, "Task not found")
	case errors.Is(err, entities.ErrUserNotFound):
		return respondError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, entities.ErrEmailTaken), errors.Is(err, entities.ErrUsernameTaken):
		return respondError(c, http.StatusBadRequest, "A record with this data already exists")
	case errors.Is(err, entities.ErrInvalidCredentials), errors.Is(err, entities.ErrUnauthorized):
		return respondError(c, http.StatusUnauthorized, "Invalid credentials")
	default:
		return respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
