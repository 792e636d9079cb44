package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/model"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

// The user profiles live on the Supabase `users_data` collection, accessed
// through the project GraphQL endpoint (`${SUPABASE_URL}/graphql/v1`) using
// the service role key.
const (
	getUserQuery = `
query GetUserById($id: UUID!) {
  users_dataCollection(filter: { id: { eq: $id } }) {
    edges {
      node {
        id
        email
        first_name
        last_name
        latitude
        longitude
        location
        created_at
      }
    }
  }
}`

	updateUserMutation = `
mutation UpdateUser($id: UUID!, $set: users_dataUpdateInput!) {
  updateusers_dataCollection(
    filter: { id: { eq: $id } }
    set: $set
    atMost: 1
  ) {
    records {
      id
      email
      first_name
      last_name
      latitude
      longitude
      location
    }
  }
}`
)

// RepositoryConfig is the Supabase user repository configuration.
type RepositoryConfig struct {
	// GraphQLURL is the Supabase GraphQL endpoint of the project.
	GraphQLURL string
	// ServiceRoleKey is the privileged Supabase key used as bearer token.
	ServiceRoleKey string
	// APIKey is the Supabase project API key (`apikey` header).
	APIKey string
	// Client is the HTTP client used for the requests.
	Client *http.Client
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.GraphQLURL == "" {
		return fmt.Errorf("graphql url is required")
	}
	if c.ServiceRoleKey == "" {
		return fmt.Errorf("service role key is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.supabase.Repository"})

	return nil
}

// Repository is a user repository backed by the Supabase GraphQL API.
type Repository struct {
	graphqlURL     string
	serviceRoleKey string
	apiKey         string
	client         *http.Client
	logger         log.Logger
}

// NewRepository returns a new Supabase user repository.
func NewRepository(config RepositoryConfig) (*Repository, error) {
	err := config.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		graphqlURL:     config.GraphQLURL,
		serviceRoleKey: config.ServiceRoleKey,
		apiKey:         config.APIKey,
		client:         config.Client,
		logger:         config.Logger,
	}, nil
}

// GetUser gets a user by ID from Supabase.
func (r Repository) GetUser(ctx context.Context, userID string) (*model.User, error) {
	resp := struct {
		Data struct {
			UsersDataCollection struct {
				Edges []struct {
					Node model.User `json:"node"`
				} `json:"edges"`
			} `json:"users_dataCollection"`
		} `json:"data"`
	}{}

	err := r.query(ctx, getUserQuery, map[string]interface{}{"id": userID}, &resp)
	if err != nil {
		return nil, err
	}

	edges := resp.Data.UsersDataCollection.Edges
	if len(edges) == 0 {
		return nil, fmt.Errorf("no user with ID %q: %w", userID, commonerrors.ErrNotFound)
	}

	user := edges[0].Node

	return &user, nil
}

// UpdateUser updates a user by ID on Supabase, only the set fields of the
// update are changed, at most one record is touched.
func (r Repository) UpdateUser(ctx context.Context, userID string, update model.UserUpdate) (*model.User, error) {
	resp := struct {
		Data struct {
			UpdateUsersDataCollection struct {
				Records []model.User `json:"records"`
			} `json:"updateusers_dataCollection"`
		} `json:"data"`
	}{}

	vars := map[string]interface{}{
		"id":  userID,
		"set": update.Fields(),
	}
	err := r.query(ctx, updateUserMutation, vars, &resp)
	if err != nil {
		return nil, err
	}

	records := resp.Data.UpdateUsersDataCollection.Records
	if len(records) == 0 {
		return nil, fmt.Errorf("no user with ID %q: %w", userID, commonerrors.ErrNotFound)
	}

	user := records[0]

	return &user, nil
}

// Ping checks the Supabase GraphQL endpoint is reachable with the configured
// credentials, used by the readiness health check.
func (r Repository) Ping(ctx context.Context) error {
	resp := struct{}{}
	return r.query(ctx, `query { __typename }`, nil, &resp)
}

type graphqlError struct {
	Message string `json:"message"`
}

func (r Repository) query(ctx context.Context, query string, variables map[string]interface{}, response interface{}) error {
	payload := map[string]interface{}{"query": query}
	if variables != nil {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create graphql request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.serviceRoleKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", r.apiKey)

	httpResp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("supabase returned %d status code: %s", httpResp.StatusCode, string(data))
	}

	// GraphQL errors come back with a 200, check them before the data.
	raw := struct {
		Errors []graphqlError `json:"errors"`
	}{}
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("could not read supabase response: %w", err)
	}

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("could not unmarshal supabase response: %w", err)
	}
	if len(raw.Errors) > 0 {
		return fmt.Errorf("supabase graphql error: %s", raw.Errors[0].Message)
	}

	err = json.Unmarshal(data, response)
	if err != nil {
		return fmt.Errorf("could not unmarshal supabase response: %w", err)
	}

	return nil
}
