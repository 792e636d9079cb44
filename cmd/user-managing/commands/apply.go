package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"gopkg.in/alecthomas/kingpin.v2"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth" // Init all available Kube client auth systems.
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/nepremicnine/user-managing/internal/deploy"
	storagek8s "github.com/nepremicnine/user-managing/internal/storage/k8s"
)

var applyModes = []string{applyModeDefault, applyModeDryRun, applyModeFake}

const (
	// default mode will run using real Kubernetes clients.
	applyModeDefault = "default"
	// dry-run mode uses real kubernetes clients, but ignoring Kubernetes write operations.
	applyModeDryRun = "dry-run"
	// fake mode fakes all the kubernetes client calls, a Kubernetes cluster is not required.
	applyModeFake = "fake"
)

type applyCommand struct {
	specInput   string
	runMode     string
	kubeLocal   bool
	kubeConfig  string
	kubeContext string
}

// NewApplyCommand returns the deploy apply command.
func NewApplyCommand(app *kingpin.Application) Command {
	c := &applyCommand{}
	deployCmd := getOrCreateDeployCmd(app)
	cmd := deployCmd.Command("apply", "Applies the Kubernetes manifests of the service on a cluster.")
	cmd.Flag("input", "Deployment spec input file path, if not set the service defaults are used.").Short('i').StringVar(&c.specInput)
	cmd.Flag("mode", "Selects apply run mode.").Default(applyModeDefault).EnumVar(&c.runMode, applyModes...)
	cmd.Flag("kube-local", "Enable local Kubernetes credentials load.").BoolVar(&c.kubeLocal)
	kubeHome := filepath.Join(homedir.HomeDir(), ".kube", "config")
	cmd.Flag("kube-config", "Kubernetes configuration path, only used when local credentials load enabled.").Default(kubeHome).StringVar(&c.kubeConfig)
	cmd.Flag("kube-context", "Kubernetes context, only used when local credentials load enabled.").StringVar(&c.kubeContext)

	return c
}

func (a applyCommand) Name() string { return "deploy apply" }
func (a applyCommand) Run(ctx context.Context, config RootConfig) error {
	logger := config.Logger

	deployment, err := loadDeployment(ctx, a.specInput)
	if err != nil {
		return err
	}

	generator, err := deploy.NewGenerator(deploy.GeneratorConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create manifest generator: %w", err)
	}

	result, err := generator.Generate(ctx, deploy.GenerateRequest{Deployment: *deployment})
	if err != nil {
		return fmt.Errorf("could not generate manifests: %w", err)
	}

	repo, err := a.newKubernetesRepository(config)
	if err != nil {
		return fmt.Errorf("could not create Kubernetes repository: %w", err)
	}

	err = repo.EnsureDeployment(ctx, result.Deployment)
	if err != nil {
		return fmt.Errorf("could not ensure deployment: %w", err)
	}

	err = repo.EnsureService(ctx, result.Service)
	if err != nil {
		return fmt.Errorf("could not ensure service: %w", err)
	}

	logger.Infof("Manifests applied")

	return nil
}

// kubernetesRepository is an internal interface so we can return all the
// Kubernetes storage specific implementations from the same function
// (e.g: regular, dry-run, fake...).
type kubernetesRepository interface {
	EnsureDeployment(ctx context.Context, d *appsv1.Deployment) error
	EnsureService(ctx context.Context, s *corev1.Service) error
}

func (a applyCommand) newKubernetesRepository(config RootConfig) (kubernetesRepository, error) {
	// Modes without real cluster writes.
	switch a.runMode {
	case applyModeFake:
		return storagek8s.NewFakeApiserverRepository(config.Logger), nil
	case applyModeDryRun:
		config.Logger.Warningf("Kubernetes in dry run mode")
		return storagek8s.NewDryRunApiserverRepository(config.Logger), nil
	}

	config.Logger.Infof("Loading Kubernetes configuration...")
	kubeCfg, err := a.loadKubernetesConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load Kubernetes configuration: %w", err)
	}

	kubeCli, err := kubernetes.NewForConfig(kubeCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create Kubernetes client: %w", err)
	}

	return storagek8s.NewApiserverRepository(kubeCli, config.Logger), nil
}

// loadKubernetesConfig loads kubernetes configuration based on flags.
func (a applyCommand) loadKubernetesConfig() (*rest.Config, error) {
	var cfg *rest.Config

	// If kube local mode then use configuration flag path.
	if a.kubeLocal {
		config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{
				ExplicitPath: a.kubeConfig,
			},
			&clientcmd.ConfigOverrides{
				CurrentContext: a.kubeContext,
			}).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("could not load configuration: %w", err)
		}
		cfg = config
	} else {
		config, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("error loading kubernetes configuration inside cluster, check app is running outside kubernetes cluster or run in local mode: %w", err)
		}
		cfg = config
	}

	// Set better cli rate limiter.
	cfg.QPS = 100
	cfg.Burst = 100

	return cfg, nil
}
