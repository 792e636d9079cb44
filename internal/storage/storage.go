package storage

import (
	"context"

	"github.com/nepremicnine/user-managing/internal/model"
)

// UserGetter knows how to get users from the storage backend.
type UserGetter interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// UserUpdater knows how to update users on the storage backend.
type UserUpdater interface {
	UpdateUser(ctx context.Context, userID string, update model.UserUpdate) (*model.User, error)
}

// Pinger knows how to check the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
