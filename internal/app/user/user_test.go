package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appuser "github.com/nepremicnine/user-managing/internal/app/user"
	"github.com/nepremicnine/user-managing/internal/model"
	storagefake "github.com/nepremicnine/user-managing/internal/storage/fake"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

const testUserID = "b5ac9453-732f-4f4f-9a30-f0c09e1638a6"

func testUser() model.User {
	return model.User{
		ID:        testUserID,
		Email:     "ana@example.com",
		FirstName: "Ana",
		LastName:  "Novak",
		Latitude:  46.0569,
		Longitude: 14.5058,
		Location:  "Ljubljana",
	}
}

func TestServiceGetUser(t *testing.T) {
	tests := map[string]struct {
		storedUsers []model.User
		req         appuser.GetUserRequest
		expUser     model.User
		expErr      error
	}{
		"Getting a stored user should return it.": {
			storedUsers: []model.User{testUser()},
			req:         appuser.GetUserRequest{UserID: testUserID},
			expUser:     testUser(),
		},

		"Getting a missing user should fail as not found.": {
			req:    appuser.GetUserRequest{UserID: testUserID},
			expErr: commonerrors.ErrNotFound,
		},

		"Getting a user without ID should fail as required.": {
			req:    appuser.GetUserRequest{},
			expErr: commonerrors.ErrRequired,
		},

		"Getting a user with a non UUID ID should fail as not valid.": {
			req:    appuser.GetUserRequest{UserID: "something"},
			expErr: commonerrors.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			service, err := appuser.NewService(appuser.ServiceConfig{
				UserGetter:  storagefake.NewRepository(test.storedUsers...),
				UserUpdater: storagefake.NewRepository(test.storedUsers...),
			})
			require.NoError(err)

			resp, err := service.GetUser(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}

			require.NoError(err)
			assert.Equal(test.expUser, resp.User)
		})
	}
}

func TestServiceUpdateUser(t *testing.T) {
	newName := "Maja"
	newLocation := "Maribor"

	tests := map[string]struct {
		storedUsers []model.User
		req         appuser.UpdateUserRequest
		expUser     func() model.User
		expErr      error
	}{
		"Updating a stored user should change only the set fields.": {
			storedUsers: []model.User{testUser()},
			req: appuser.UpdateUserRequest{
				UserID: testUserID,
				Update: model.UserUpdate{FirstName: &newName, Location: &newLocation},
			},
			expUser: func() model.User {
				u := testUser()
				u.FirstName = newName
				u.Location = newLocation
				return u
			},
		},

		"Updating a missing user should fail as not found.": {
			req: appuser.UpdateUserRequest{
				UserID: testUserID,
				Update: model.UserUpdate{FirstName: &newName},
			},
			expErr: commonerrors.ErrNotFound,
		},

		"Updating without any field set should fail as not valid.": {
			storedUsers: []model.User{testUser()},
			req: appuser.UpdateUserRequest{
				UserID: testUserID,
				Update: model.UserUpdate{},
			},
			expErr: commonerrors.ErrNotValid,
		},

		"Updating with a non UUID ID should fail as not valid.": {
			req: appuser.UpdateUserRequest{
				UserID: "something",
				Update: model.UserUpdate{FirstName: &newName},
			},
			expErr: commonerrors.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := storagefake.NewRepository(test.storedUsers...)
			service, err := appuser.NewService(appuser.ServiceConfig{
				UserGetter:  repo,
				UserUpdater: repo,
			})
			require.NoError(err)

			resp, err := service.UpdateUser(context.TODO(), test.req)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}

			require.NoError(err)
			assert.Equal(test.expUser(), resp.User)
		})
	}
}

func TestNewService(t *testing.T) {
	assert := assert.New(t)

	_, err := appuser.NewService(appuser.ServiceConfig{})
	assert.Error(err)
}
