package supabase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepremicnine/user-managing/internal/model"
	"github.com/nepremicnine/user-managing/internal/storage/supabase"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

const testUserID = "b5ac9453-732f-4f4f-9a30-f0c09e1638a6"

func newTestRepository(t *testing.T, handler http.HandlerFunc) (*supabase.Repository, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	repo, err := supabase.NewRepository(supabase.RepositoryConfig{
		GraphQLURL:     server.URL,
		ServiceRoleKey: "service-role-key",
		APIKey:         "anon-key",
		Client:         server.Client(),
	})
	require.NoError(t, err)

	return repo, server
}

func TestRepositoryGetUser(t *testing.T) {
	userNode := `{
		"id": "b5ac9453-732f-4f4f-9a30-f0c09e1638a6",
		"email": "ana@example.com",
		"first_name": "Ana",
		"last_name": "Novak",
		"latitude": 46.0569,
		"longitude": 14.5058,
		"location": "Ljubljana",
		"created_at": "2023-04-11T09:21:00"
	}`

	tests := map[string]struct {
		response    string
		status      int
		expUser     *model.User
		expErr      bool
		expNotFound bool
	}{
		"A user on the collection should be returned.": {
			response: `{"data": {"users_dataCollection": {"edges": [{"node": ` + userNode + `}]}}}`,
			status:   http.StatusOK,
			expUser: &model.User{
				ID:        testUserID,
				Email:     "ana@example.com",
				FirstName: "Ana",
				LastName:  "Novak",
				Latitude:  46.0569,
				Longitude: 14.5058,
				Location:  "Ljubljana",
				CreatedAt: "2023-04-11T09:21:00",
			},
		},

		"An empty collection should fail as not found.": {
			response:    `{"data": {"users_dataCollection": {"edges": []}}}`,
			status:      http.StatusOK,
			expErr:      true,
			expNotFound: true,
		},

		"A GraphQL error should fail.": {
			response: `{"errors": [{"message": "something"}]}`,
			status:   http.StatusOK,
			expErr:   true,
		},

		"A non 200 response should fail.": {
			response: `upstream exploded`,
			status:   http.StatusBadGateway,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.response))
			})

			user, err := repo.GetUser(context.TODO(), testUserID)

			if test.expErr {
				assert.Error(err)
				if test.expNotFound {
					assert.ErrorIs(err, commonerrors.ErrNotFound)
				}
				return
			}

			require.NoError(err)
			assert.Equal(test.expUser, user)
		})
	}
}

func TestRepositoryUpdateUser(t *testing.T) {
	tests := map[string]struct {
		response     string
		expFirstName string
		expErr       error
	}{
		"An updated record should be returned.": {
			response:     `{"data": {"updateusers_dataCollection": {"records": [{"id": "b5ac9453-732f-4f4f-9a30-f0c09e1638a6", "email": "ana@example.com", "first_name": "Maja", "last_name": "Novak"}]}}}`,
			expFirstName: "Maja",
		},

		"An update touching no records should fail as not found.": {
			response: `{"data": {"updateusers_dataCollection": {"records": []}}}`,
			expErr:   commonerrors.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(test.response))
			})

			firstName := "Maja"
			user, err := repo.UpdateUser(context.TODO(), testUserID, model.UserUpdate{FirstName: &firstName})

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}

			require.NoError(err)
			assert.Equal(test.expFirstName, user.FirstName)
		})
	}
}

func TestRepositoryRequestWiring(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var gotAuth, gotAPIKey, gotContentType string
	var gotPayload struct {
		Query     string                 `json:"query"`
		Variables map[string]interface{} `json:"variables"`
	}

	repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"data": {"updateusers_dataCollection": {"records": [{"id": "x"}]}}}`))
	})

	firstName := "Maja"
	_, err := repo.UpdateUser(context.TODO(), testUserID, model.UserUpdate{FirstName: &firstName})
	require.NoError(err)

	assert.Equal("Bearer service-role-key", gotAuth)
	assert.Equal("anon-key", gotAPIKey)
	assert.Equal("application/json", gotContentType)
	assert.Contains(gotPayload.Query, "updateusers_dataCollection")
	assert.Contains(gotPayload.Query, "atMost: 1")
	assert.Equal(testUserID, gotPayload.Variables["id"])
	assert.Equal(map[string]interface{}{"first_name": "Maja"}, gotPayload.Variables["set"])
}

func TestRepositoryPing(t *testing.T) {
	tests := map[string]struct {
		response string
		status   int
		expErr   bool
	}{
		"A reachable endpoint should not fail.": {
			response: `{"data": {"__typename": "Query"}}`,
			status:   http.StatusOK,
		},

		"An endpoint rejecting the credentials should fail.": {
			response: `{"errors": [{"message": "invalid api key"}]}`,
			status:   http.StatusOK,
			expErr:   true,
		},

		"An unreachable endpoint should fail.": {
			response: `nope`,
			status:   http.StatusServiceUnavailable,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			repo, _ := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.response))
			})

			err := repo.Ping(context.TODO())

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}
