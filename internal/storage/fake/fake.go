package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/nepremicnine/user-managing/internal/model"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

// Repository is a memory based user repository, used on fake run mode and
// tests, a Supabase project is not required.
type Repository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

// NewRepository returns a fake user repository preloaded with the received users.
func NewRepository(users ...model.User) *Repository {
	r := &Repository{users: map[string]model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}

	return r
}

func (r *Repository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("no user with ID %q: %w", userID, commonerrors.ErrNotFound)
	}

	return &user, nil
}

func (r *Repository) UpdateUser(ctx context.Context, userID string, update model.UserUpdate) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("no user with ID %q: %w", userID, commonerrors.ErrNotFound)
	}

	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Latitude != nil {
		user.Latitude = *update.Latitude
	}
	if update.Longitude != nil {
		user.Longitude = *update.Longitude
	}
	if update.Location != nil {
		user.Location = *update.Location
	}

	r.users[userID] = user

	return &user, nil
}

func (r *Repository) Ping(ctx context.Context) error { return nil }
