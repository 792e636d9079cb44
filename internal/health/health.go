package health

import (
	"context"
	"fmt"

	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/model"
	"github.com/nepremicnine/user-managing/internal/storage"
)

// Checker knows how to check the health of a single service component.
type Checker interface {
	Name() string
	Check(ctx context.Context) model.HealthComponent
}

// CheckerFunc is a helper to create checkers from functions.
type CheckerFunc struct {
	CheckerName string
	Func        func(ctx context.Context) model.HealthComponent
}

func (c CheckerFunc) Name() string                                     { return c.CheckerName }
func (c CheckerFunc) Check(ctx context.Context) model.HealthComponent { return c.Func(ctx) }

// ServiceConfig is the health service configuration.
type ServiceConfig struct {
	// Checkers are the components checked on every health evaluation.
	Checkers []Checker
	// StoragePinger gates readiness on the storage backend being reachable,
	// it is not evaluated for liveness.
	StoragePinger storage.Pinger
	// BackendURL is surfaced on the readiness details for debugging.
	BackendURL string
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if len(c.Checkers) == 0 {
		return fmt.Errorf("at least one health checker is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "health.Service"})

	return nil
}

// Service evaluates the service health components and aggregates them on
// reports ready to be served to the deployment probes.
type Service struct {
	checkers      []Checker
	storagePinger storage.Pinger
	backendURL    string
	logger        log.Logger
}

// NewService returns a new health service.
func NewService(config ServiceConfig) (*Service, error) {
	err := config.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		checkers:      config.Checkers,
		storagePinger: config.StoragePinger,
		backendURL:    config.BackendURL,
		logger:        config.Logger,
	}, nil
}

// General is the liveness evaluation, it checks the process level components.
func (s Service) General(ctx context.Context) model.HealthReport {
	return model.NewHealthReport(s.checkComponents(ctx))
}

// Readiness is the readiness evaluation, it checks the same components as the
// liveness one plus the storage backend reachability.
func (s Service) Readiness(ctx context.Context) model.HealthReport {
	components := s.checkComponents(ctx)

	if s.storagePinger != nil {
		c := model.HealthComponent{Status: model.HealthStatusUp, Details: "storage backend reachable"}
		err := s.storagePinger.Ping(ctx)
		if err != nil {
			c = model.HealthComponent{
				Status:  model.HealthStatusDown,
				Details: fmt.Sprintf("storage backend unreachable: %s", err),
			}
		}
		if s.backendURL != "" {
			c.Details = fmt.Sprintf("%s (backend: %s)", c.Details, s.backendURL)
		}
		components["storage"] = c
	}

	return model.NewHealthReport(components)
}

func (s Service) checkComponents(ctx context.Context) map[string]model.HealthComponent {
	components := map[string]model.HealthComponent{}
	for _, checker := range s.checkers {
		c := checker.Check(ctx)
		if c.Status == model.HealthStatusDown {
			s.logger.WithValues(log.Kv{"component": checker.Name()}).Warningf("Health component down: %s", c.Details)
		}
		components[checker.Name()] = c
	}

	return components
}
