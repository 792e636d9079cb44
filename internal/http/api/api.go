package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	gohttpmetrics "github.com/slok/go-http-metrics/middleware"

	appuser "github.com/nepremicnine/user-managing/internal/app/user"
	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/model"
	"github.com/nepremicnine/user-managing/internal/security"
	"github.com/nepremicnine/user-managing/pkg/common/conventions"
)

// Route paths come from the shared conventions, the deployment probes and the
// platform gateway depend on them.
const (
	ServePrefix         = conventions.ServePrefix
	HealthGeneralPath   = conventions.HealthGeneralPath
	HealthReadinessPath = conventions.HealthReadinessPath
)

// UserApp is the user application service used by the API handlers.
type UserApp interface {
	GetUser(ctx context.Context, req appuser.GetUserRequest) (*appuser.GetUserResponse, error)
	UpdateUser(ctx context.Context, req appuser.UpdateUserRequest) (*appuser.UpdateUserResponse, error)
}

// HealthApp is the health service used by the probe handlers.
type HealthApp interface {
	General(ctx context.Context) model.HealthReport
	Readiness(ctx context.Context) model.HealthReport
}

// TokenVerifier verifies the bearer tokens of the mutating endpoints.
type TokenVerifier interface {
	VerifyToken(token string) (jwtClaims, error)
}

type jwtClaims = map[string]interface{}

// Config is the API handler configuration.
type Config struct {
	UserApp         UserApp
	HealthApp       HealthApp
	TokenVerifier   TokenVerifier
	MetricsRecorder MetricsRecorder
	// AllowedOrigin enables CORS for the platform frontend when set.
	AllowedOrigin string
	Logger        log.Logger
}

func (c *Config) defaults() error {
	if c.UserApp == nil {
		return fmt.Errorf("user app is required")
	}
	if c.HealthApp == nil {
		return fmt.Errorf("health app is required")
	}
	if c.TokenVerifier == nil {
		return fmt.Errorf("token verifier is required")
	}
	if c.MetricsRecorder == nil {
		c.MetricsRecorder = noopMetricsRecorder
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "http.api"})

	return nil
}

type api struct {
	router            chi.Router
	metricsMiddleware gohttpmetrics.Middleware
	userApp           UserApp
	healthApp         HealthApp
	tokenVerifier     TokenVerifier
	allowedOrigin     string
	logger            log.Logger
}

// New returns the service HTTP handler.
func New(cfg Config) (http.Handler, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := api{
		router: chi.NewRouter(),
		metricsMiddleware: gohttpmetrics.New(gohttpmetrics.Config{
			Recorder: cfg.MetricsRecorder,
			Service:  "user-managing-api",
		}),
		userApp:       cfg.UserApp,
		healthApp:     cfg.HealthApp,
		tokenVerifier: cfg.TokenVerifier,
		allowedOrigin: cfg.AllowedOrigin,
		logger:        cfg.Logger,
	}

	a.registerGlobalMiddlewares()
	a.registerRoutes()

	return a, nil
}

func (a api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// verifierAdapter adapts *security.TokenVerifier claims to the API interface.
type verifierAdapter struct {
	verifier *security.TokenVerifier
}

// NewTokenVerifier adapts a security token verifier to the API configuration.
func NewTokenVerifier(v *security.TokenVerifier) TokenVerifier {
	return verifierAdapter{verifier: v}
}

func (v verifierAdapter) VerifyToken(token string) (jwtClaims, error) {
	claims, err := v.verifier.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
