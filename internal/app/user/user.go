package user

import (
	"context"
	"fmt"

	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/model"
	"github.com/nepremicnine/user-managing/internal/storage"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

// ServiceConfig is the user application service configuration.
type ServiceConfig struct {
	UserGetter  storage.UserGetter
	UserUpdater storage.UserUpdater
	Logger      log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.UserGetter == nil {
		return fmt.Errorf("user getter is required")
	}
	if c.UserUpdater == nil {
		return fmt.Errorf("user updater is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "user.Service"})

	return nil
}

// Service is the application service of the user profile operations.
type Service struct {
	userGetter  storage.UserGetter
	userUpdater storage.UserUpdater
	logger      log.Logger
}

// NewService returns a new user application service.
func NewService(config ServiceConfig) (*Service, error) {
	err := config.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		userGetter:  config.UserGetter,
		userUpdater: config.UserUpdater,
		logger:      config.Logger,
	}, nil
}

// GetUserRequest is the request of GetUser.
type GetUserRequest struct {
	UserID string
}

// GetUserResponse is the response of GetUser.
type GetUserResponse struct {
	User model.User
}

// GetUser gets a user profile by ID.
func (s Service) GetUser(ctx context.Context, req GetUserRequest) (*GetUserResponse, error) {
	err := model.ValidateUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	user, err := s.userGetter.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("could not get user: %w", err)
	}

	return &GetUserResponse{User: *user}, nil
}

// UpdateUserRequest is the request of UpdateUser.
type UpdateUserRequest struct {
	UserID string
	Update model.UserUpdate
}

// UpdateUserResponse is the response of UpdateUser.
type UpdateUserResponse struct {
	User model.User
}

// UpdateUser updates a user profile by ID, only the set fields are changed.
func (s Service) UpdateUser(ctx context.Context, req UpdateUserRequest) (*UpdateUserResponse, error) {
	err := model.ValidateUserID(req.UserID)
	if err != nil {
		return nil, err
	}

	err = req.Update.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid user update: %w", commonerrors.ErrNotValid)
	}

	user, err := s.userUpdater.UpdateUser(ctx, req.UserID, req.Update)
	if err != nil {
		return nil, fmt.Errorf("could not update user: %w", err)
	}

	s.logger.WithCtxValues(ctx).WithValues(log.Kv{"user-id": req.UserID}).Infof("User updated")

	return &UpdateUserResponse{User: *user}, nil
}
