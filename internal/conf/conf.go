package conf

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Run modes of the service, injected by the deployment through the
// USER_MANAGING_SERVER_MODE environment variable.
const (
	RunModeRelease = "release"
	RunModeDebug   = "debug"
)

// Default values for the optional environment variables.
const (
	defaultServerPort = 8080
	defaultRunMode    = RunModeRelease
)

// AppConfig is the service configuration injected by the deployment as
// environment variables (secret backed ones come from the secret store).
type AppConfig struct {
	SupabaseURL            string `validate:"required,url"`
	SupabaseKey            string `validate:"required"`
	SupabaseServiceRoleKey string `validate:"required"`
	SupabaseJWTSecret      string `validate:"required"`
	FrontendURL            string `validate:"omitempty,url"`
	BackendURL             string `validate:"omitempty,url"`
	ServerPort             int    `validate:"required,gt=0,lte=65535"`
	RunMode                string `validate:"required,oneof=release debug"`
}

// Environment variable names the deployment wires into the container.
const (
	EnvSupabaseURL            = "SUPABASE_URL"
	EnvSupabaseKey            = "SUPABASE_KEY"
	EnvSupabaseServiceRoleKey = "SUPABASE_SERVICE_ROLE_KEY"
	EnvSupabaseJWTSecret      = "SUPABASE_JWT_SECRET"
	EnvFrontendURL            = "FRONTEND_URL"
	EnvBackendURL             = "BACKEND_URL"
	EnvServerPort             = "USER_MANAGING_SERVER_PORT"
	EnvRunMode                = "USER_MANAGING_SERVER_MODE"
)

// GetenvFunc knows how to get environment variables, normally os.Getenv.
type GetenvFunc func(key string) string

// NewAppConfig loads the application configuration from the environment.
func NewAppConfig(getenv GetenvFunc) (*AppConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	c := &AppConfig{
		SupabaseURL:            getenv(EnvSupabaseURL),
		SupabaseKey:            getenv(EnvSupabaseKey),
		SupabaseServiceRoleKey: getenv(EnvSupabaseServiceRoleKey),
		SupabaseJWTSecret:      getenv(EnvSupabaseJWTSecret),
		FrontendURL:            getenv(EnvFrontendURL),
		BackendURL:             getenv(EnvBackendURL),
		ServerPort:             defaultServerPort,
		RunMode:                defaultRunMode,
	}

	if port := getenv(EnvServerPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", EnvServerPort, port, err)
		}
		c.ServerPort = p
	}

	if mode := getenv(EnvRunMode); mode != "" {
		c.RunMode = mode
	}

	err := confValidate.Struct(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

// GraphQLURL returns the Supabase GraphQL endpoint for the configured project.
func (c AppConfig) GraphQLURL() string {
	return c.SupabaseURL + "/graphql/v1"
}

var confValidate = func() *validator.Validate {
	return validator.New()
}()
