package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// UserService handles user profile operations
type UserService struct {
	userRepo ports.UserRepository
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// GetProfile returns the user's account data together with their task count
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*ports.Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.taskRepo.Count(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	profile := &ports.Profile{User: *user, TaskCount: count}
	profile.PasswordHash = ""

	return profile, nil
}
