package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gohttpmetricsprometheus "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/reload"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v2"

	appuser "github.com/nepremicnine/user-managing/internal/app/user"
	"github.com/nepremicnine/user-managing/internal/conf"
	"github.com/nepremicnine/user-managing/internal/health"
	"github.com/nepremicnine/user-managing/internal/http/api"
	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/internal/security"
	"github.com/nepremicnine/user-managing/internal/storage"
	storagefake "github.com/nepremicnine/user-managing/internal/storage/fake"
	storagesupabase "github.com/nepremicnine/user-managing/internal/storage/supabase"
)

type serverCommand struct {
	appListenAddress    string
	statusListenAddress string
	metricsPath         string
	pprofPath           string
	hotReloadAddr       string
	hotReloadPath       string
	healthConfigPath    string
	fakeStorage         bool
}

// NewServerCommand returns the server command.
func NewServerCommand(app *kingpin.Application) Command {
	c := &serverCommand{}
	cmd := app.Command("server", "Runs the user-managing HTTP API server.")
	cmd.Flag("app-listen-address", "Application listen address, when empty the configured server port is used.").StringVar(&c.appListenAddress)
	cmd.Flag("status-listen-address", "Status (metrics, pprof...) listen address.").Default(":8081").StringVar(&c.statusListenAddress)
	cmd.Flag("metrics-path", "Prometheus metrics path where metrics will be served.").Default("/metrics").StringVar(&c.metricsPath)
	cmd.Flag("pprof-path", "PProf path where debug tool is available.").Default("/debug/pprof").StringVar(&c.pprofPath)
	cmd.Flag("hot-reload-addr", "The listen address for hot-reloading components that allow it.").Default(":8082").StringVar(&c.hotReloadAddr)
	cmd.Flag("hot-reload-path", "The webhook path for hot-reloading components that allow it.").Default("/-/reload").StringVar(&c.hotReloadPath)
	cmd.Flag("health-config-path", "Optional YAML file with the health check thresholds, reloadable on SIGHUP or webhook.").StringVar(&c.healthConfigPath)
	cmd.Flag("fake-storage", "Use a memory user storage instead of Supabase, a project is not required.").BoolVar(&c.fakeStorage)

	return c
}

func (s serverCommand) Name() string { return "server" }
func (s serverCommand) Run(ctx context.Context, config RootConfig) error {
	logger := config.Logger.WithValues(log.Kv{"command": s.Name()})

	// Application configuration comes from the environment the deployment
	// injects (secret backed and literal variables).
	appCfg, err := s.loadAppConfig()
	if err != nil {
		return err
	}
	logger = logger.WithValues(log.Kv{"mode": appCfg.RunMode})

	// User storage.
	var userRepo userRepository
	if s.fakeStorage {
		logger.Warningf("Using fake memory user storage")
		userRepo = storagefake.NewRepository()
	} else {
		repo, err := storagesupabase.NewRepository(storagesupabase.RepositoryConfig{
			GraphQLURL:     appCfg.GraphQLURL(),
			ServiceRoleKey: appCfg.SupabaseServiceRoleKey,
			APIKey:         appCfg.SupabaseKey,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("could not create Supabase repository: %w", err)
		}
		userRepo = repo
	}

	// Health checkers with optional file based thresholds.
	cpuChecker := health.NewCPUChecker(0, nil)
	diskChecker := health.NewDiskChecker(0, "", nil)
	err = s.applyHealthThresholds(cpuChecker, diskChecker)
	if err != nil {
		return err
	}

	healthService, err := health.NewService(health.ServiceConfig{
		Checkers:      []health.Checker{cpuChecker, diskChecker},
		StoragePinger: userRepo,
		BackendURL:    appCfg.BackendURL,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create health service: %w", err)
	}

	// User application service.
	userService, err := appuser.NewService(appuser.ServiceConfig{
		UserGetter:  userRepo,
		UserUpdater: userRepo,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create user service: %w", err)
	}

	// Token verification for the mutating endpoints.
	verifier, err := security.NewTokenVerifier(appCfg.SupabaseJWTSecret)
	if err != nil {
		return fmt.Errorf("could not create token verifier: %w", err)
	}

	apiHandler, err := api.New(api.Config{
		UserApp:       userService,
		HealthApp:     healthService,
		TokenVerifier: api.NewTokenVerifier(verifier),
		MetricsRecorder: gohttpmetricsprometheus.NewRecorder(gohttpmetricsprometheus.Config{
			Registry: prometheus.DefaultRegisterer,
		}),
		AllowedOrigin: appCfg.FrontendURL,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create API handler: %w", err)
	}

	appAddr := s.appListenAddress
	if appAddr == "" {
		appAddr = fmt.Sprintf(":%d", appCfg.ServerPort)
	}

	// Prepare our run and reload entrypoints.
	var g run.Group
	reloadManager := reload.NewManager()

	// Run hot-reload.
	{
		// Health thresholds reloader.
		reloadManager.Add(1000, reload.ReloaderFunc(func(ctx context.Context, id string) error {
			return s.applyHealthThresholds(cpuChecker, diskChecker)
		}))

		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				logger.Infof("Hot-reload manager running")
				defer logger.Infof("Hot-reload manager stopped")
				return reloadManager.Run(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	// OS signals.
	{
		sigC := make(chan os.Signal, 1)
		reloadC := make(chan struct{})
		exitC := make(chan struct{})
		signal.Notify(sigC, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

		// Add hot-reload notifier for SIGHUP.
		reloadManager.On(reload.NotifierFunc(func(ctx context.Context) (string, error) {
			<-reloadC
			logger.Infof("Hot-reload triggered from OS SIGHUP signal")
			return "sighup", nil
		}))

		g.Add(
			func() error {
				logger.Infof("OS signals listener started")
				defer logger.Infof("OS signals listener stopped")
				for {
					select {
					case sig := <-sigC:
						logger.Infof("Signal %s received", sig)
						// Don't stop if SIGHUP, only reload.
						if sig == syscall.SIGHUP {
							reloadC <- struct{}{}
							continue
						}

						return nil
					case <-exitC:
						return nil
					}
				}
			},
			func(_ error) {
				close(exitC)
			},
		)
	}

	// Hot-reloading HTTP server.
	{
		hotReloadC := make(chan struct{})
		reloadManager.On(reload.NotifierFunc(func(ctx context.Context) (string, error) {
			<-hotReloadC
			logger.Infof("Hot-reload triggered from http webhook")
			return "http", nil
		}))

		mux := http.NewServeMux()
		mux.Handle(s.hotReloadPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			hotReloadC <- struct{}{}
		}))

		server := &http.Server{
			Addr:    s.hotReloadAddr,
			Handler: mux,
		}

		g.Add(
			func() error {
				logger.WithValues(log.Kv{"addr": s.hotReloadAddr}).Infof("Hot-reload http server listening")
				defer logger.WithValues(log.Kv{"addr": s.hotReloadAddr}).Infof("Hot-reload http server stopped")
				return server.ListenAndServe()
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := server.Shutdown(ctx)
				if err != nil {
					logger.Errorf("Error shutting down hot-reload server: %s", err)
				}
			},
		)
	}

	// Status server (metrics, pprof...).
	{
		logger := logger.WithValues(log.Kv{"addr": s.statusListenAddress, "metrics": s.metricsPath, "pprof": s.pprofPath})

		mux := http.NewServeMux()

		// Metrics.
		mux.Handle(s.metricsPath, promhttp.Handler())

		// Pprof.
		mux.HandleFunc(s.pprofPath+"/", pprof.Index)
		mux.HandleFunc(s.pprofPath+"/cmdline", pprof.Cmdline)
		mux.HandleFunc(s.pprofPath+"/profile", pprof.Profile)
		mux.HandleFunc(s.pprofPath+"/symbol", pprof.Symbol)
		mux.HandleFunc(s.pprofPath+"/trace", pprof.Trace)

		server := &http.Server{
			Addr:    s.statusListenAddress,
			Handler: mux,
		}

		g.Add(
			func() error {
				logger.Infof("Status http server listening")
				defer logger.Infof("Status http server stopped")
				return server.ListenAndServe()
			},
			func(_ error) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := server.Shutdown(ctx)
				if err != nil {
					logger.Errorf("Error shutting down status server: %s", err)
				}
			},
		)
	}

	// Application API server.
	{
		logger := logger.WithValues(log.Kv{"addr": appAddr})

		server := &http.Server{
			Addr:    appAddr,
			Handler: apiHandler,
		}

		g.Add(
			func() error {
				logger.Infof("API http server listening")
				defer logger.Infof("API http server stopped")
				return server.ListenAndServe()
			},
			func(_ error) {
				logger.Infof("Start draining connections")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				err := server.Shutdown(ctx)
				if err != nil {
					logger.Errorf("Error while shutting down the server: %s", err)
				} else {
					logger.Infof("Server stopped")
				}
			},
		)
	}

	return g.Run()
}

// userRepository groups the storage capabilities the server needs from the
// user storage backend.
type userRepository interface {
	storage.UserGetter
	storage.UserUpdater
	storage.Pinger
}

// loadAppConfig loads the environment configuration, on fake storage mode the
// Supabase credentials are not required.
func (s serverCommand) loadAppConfig() (*conf.AppConfig, error) {
	if s.fakeStorage {
		getenv := func(key string) string {
			switch key {
			case conf.EnvSupabaseURL:
				return "http://fake.supabase.local"
			case conf.EnvSupabaseKey, conf.EnvSupabaseServiceRoleKey, conf.EnvSupabaseJWTSecret:
				return "fake"
			}
			return os.Getenv(key)
		}
		return conf.NewAppConfig(getenv)
	}

	return conf.NewAppConfig(nil)
}

// healthThresholdsFile is the optional reloadable file with the health check
// thresholds.
type healthThresholdsFile struct {
	MaxLoadPerCPU       float64 `yaml:"max_load_per_cpu"`
	MaxDiskUsagePercent float64 `yaml:"max_disk_usage_percent"`
}

func (s serverCommand) applyHealthThresholds(cpu *health.CPUChecker, disk *health.DiskChecker) error {
	if s.healthConfigPath == "" {
		return nil
	}

	data, err := os.ReadFile(s.healthConfigPath)
	if err != nil {
		return fmt.Errorf("could not read health config file: %w", err)
	}

	thresholds := healthThresholdsFile{}
	err = yaml.Unmarshal(data, &thresholds)
	if err != nil {
		return fmt.Errorf("could not unmarshall health config file: %w", err)
	}

	cpu.SetMaxLoadPerCPU(thresholds.MaxLoadPerCPU)
	disk.SetMaxUsagePercent(thresholds.MaxDiskUsagePercent)

	return nil
}
