package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

// User is a user profile as stored on the Supabase `users_data` collection.
type User struct {
	ID        string  `json:"id" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Location  string  `json:"location"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// Validate validates the user.
func (u User) Validate() error {
	err := modelValidate.Struct(u)
	if err != nil {
		return err
	}

	return ValidateUserID(u.ID)
}

// UserUpdate is a partial update of a user profile, unset fields are
// left untouched on the storage backend.
type UserUpdate struct {
	FirstName *string  `json:"first_name,omitempty"`
	LastName  *string  `json:"last_name,omitempty"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Location  *string  `json:"location,omitempty"`
}

// Validate validates the update, at least one field must be set.
func (u UserUpdate) Validate() error {
	if u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Latitude == nil && u.Longitude == nil && u.Location == nil {
		return fmt.Errorf("at least one field must be set: %w", commonerrors.ErrRequired)
	}

	return modelValidate.Struct(u)
}

// Fields returns the set fields as a plain map ready to be used as the
// `set` variable of the Supabase update mutation.
func (u UserUpdate) Fields() map[string]interface{} {
	set := map[string]interface{}{}
	if u.FirstName != nil {
		set["first_name"] = *u.FirstName
	}
	if u.LastName != nil {
		set["last_name"] = *u.LastName
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Latitude != nil {
		set["latitude"] = *u.Latitude
	}
	if u.Longitude != nil {
		set["longitude"] = *u.Longitude
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}

	return set
}

// ValidateUserID checks the received user ID is a valid user identifier (UUID).
func ValidateUserID(id string) error {
	if id == "" {
		return fmt.Errorf("user id is required: %w", commonerrors.ErrRequired)
	}

	_, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("user id must be a valid UUID: %w", commonerrors.ErrNotValid)
	}

	return nil
}

var modelValidate = func() *validator.Validate {
	return validator.New()
}()
