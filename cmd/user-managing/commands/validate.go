package commands

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/nepremicnine/user-managing/internal/deploy"
	"github.com/nepremicnine/user-managing/internal/log"
	"github.com/nepremicnine/user-managing/pkg/common/conventions"
)

type validateCommand struct {
	input        string
	excludeRegex string
	includeRegex string
}

// NewValidateCommand returns the deploy validate command.
func NewValidateCommand(app *kingpin.Application) Command {
	c := &validateCommand{}
	deployCmd := getOrCreateDeployCmd(app)
	cmd := deployCmd.Command("validate", "Validates the Kubernetes manifests of the service.")
	cmd.Flag("input", "Manifest discovery path, will discover recursively all YAML files.").Short('i').Required().StringVar(&c.input)
	cmd.Flag("fs-exclude", "Filter regex to ignore matched discovered manifest file paths.").Short('e').StringVar(&c.excludeRegex)
	cmd.Flag("fs-include", "Filter regex to include matched discovered manifest file paths, everything else will be ignored. Exclude has preference.").Short('n').StringVar(&c.includeRegex)

	return c
}

func (v validateCommand) Name() string { return "deploy validate" }
func (v validateCommand) Run(ctx context.Context, config RootConfig) error {
	logger := config.Logger

	// Set up files discovery filter regex.
	var excludeRegex *regexp.Regexp
	var includeRegex *regexp.Regexp
	if v.excludeRegex != "" {
		r, err := regexp.Compile(v.excludeRegex)
		if err != nil {
			return fmt.Errorf("invalid exclude regex: %w", err)
		}
		excludeRegex = r
	}
	if v.includeRegex != "" {
		r, err := regexp.Compile(v.includeRegex)
		if err != nil {
			return fmt.Errorf("invalid include regex: %w", err)
		}
		includeRegex = r
	}

	// Discover manifests.
	manifestPaths, err := discoverManifests(logger, excludeRegex, includeRegex, v.input)
	if err != nil {
		return fmt.Errorf("could not discover files: %w", err)
	}
	if len(manifestPaths) == 0 {
		return fmt.Errorf("0 manifests have been discovered")
	}

	linter, err := deploy.NewLinter(deploy.LinterConfig{
		ServedHealthPaths: conventions.HealthPaths(),
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("could not create manifest linter: %w", err)
	}

	// For every file load the data and start the lint process.
	validations := []*fileValidation{}
	for _, input := range manifestPaths {
		data, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("could not read manifest file data: %w", err)
		}

		validation := &fileValidation{File: input}
		validations = append(validations, validation)

		lintErrs, err := linter.LintManifest(ctx, data)
		if err != nil {
			validation.Errs = append(validation.Errs, fmt.Errorf("invalid manifest: %w", err))
		} else {
			validation.Errs = append(validation.Errs, lintErrs...)
		}

		// Don't wait until the end to show validation per file.
		logger := logger.WithValues(log.Kv{"file": validation.File})
		logger.Debugf("File validated")
		for _, err := range validation.Errs {
			logger.Errorf("%s", err)
		}
	}

	// Check if we need to return an error.
	for _, v := range validations {
		if len(v.Errs) != 0 {
			return fmt.Errorf("validation failed")
		}
	}

	logger.WithValues(log.Kv{"manifests": len(manifestPaths)}).Infof("Validation succeeded")
	return nil
}

type fileValidation struct {
	File string
	Errs []error
}
