package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/alecthomas/kingpin.v2"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/nepremicnine/user-managing/internal/deploy"
	"github.com/nepremicnine/user-managing/internal/log"
	storageio "github.com/nepremicnine/user-managing/internal/storage/io"
)

type generateCommand struct {
	specInput   string
	out         string
	extraLabels map[string]string
}

// NewGenerateCommand returns the deploy generate command.
func NewGenerateCommand(app *kingpin.Application) Command {
	c := &generateCommand{extraLabels: map[string]string{}}
	deployCmd := getOrCreateDeployCmd(app)
	cmd := deployCmd.Command("generate", "Generates the Kubernetes manifests of the service.")
	cmd.Flag("input", "Deployment spec input file path, if not set the service defaults are used.").Short('i').StringVar(&c.specInput)
	cmd.Flag("out", "Generated manifests output file path. If `-` it will use stdout.").Short('o').Default("-").StringVar(&c.out)
	cmd.Flag("extra-labels", "Extra labels that will be added to all the generated objects ('key=value' form, can be repeated).").Short('l').StringMapVar(&c.extraLabels)

	return c
}

func (g generateCommand) Name() string { return "deploy generate" }
func (g generateCommand) Run(ctx context.Context, config RootConfig) error {
	// Load the deployment model (spec file or service defaults).
	deployment, err := loadDeployment(ctx, g.specInput)
	if err != nil {
		return err
	}

	generator, err := deploy.NewGenerator(deploy.GeneratorConfig{
		ExtraLabels: g.extraLabels,
		Logger:      config.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create manifest generator: %w", err)
	}

	result, err := generator.Generate(ctx, deploy.GenerateRequest{Deployment: *deployment})
	if err != nil {
		return fmt.Errorf("could not generate manifests: %w", err)
	}

	// Store.
	var out io.Writer = config.Stdout
	if g.out != "-" {
		f, err := os.Create(g.out)
		if err != nil {
			return fmt.Errorf("could not create out file: %w", err)
		}
		defer f.Close()
		out = f
	}

	repo := storageio.NewIOWriterK8sObjectYAMLRepo(out, config.Logger)

	ctx = config.Logger.SetValuesOnCtx(ctx, log.Kv{"out": g.out})
	err = repo.StoreObjects(ctx, []runtime.Object{result.Deployment, result.Service})
	if err != nil {
		return fmt.Errorf("could not store manifests: %w", err)
	}

	return nil
}

// loadDeployment loads a deployment model from a spec file, falling back to
// the service defaults when no input is given.
func loadDeployment(ctx context.Context, specInput string) (*deploy.Deployment, error) {
	if specInput == "" {
		d := deploy.DefaultDeployment()
		return &d, nil
	}

	data, err := os.ReadFile(specInput)
	if err != nil {
		return nil, fmt.Errorf("could not read deployment spec file: %w", err)
	}

	deployment, err := deploy.YAMLSpecLoader.LoadSpec(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("could not load deployment spec: %w", err)
	}

	return deployment, nil
}
