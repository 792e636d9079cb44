package deploy

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apiyaml "k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/kubernetes/scheme"

	"github.com/nepremicnine/user-managing/internal/log"
)

// Lint rule IDs, surfaced on the lint results.
const (
	RulePortCoherence     = "port-coherence"
	RuleSecretConsistency = "secret-consistency"
	RuleProbePaths        = "probe-paths"
	RuleResources         = "resources"
	RuleWorkloadBasics    = "workload-basics"
)

// LinterConfig is the manifest linter configuration.
type LinterConfig struct {
	// RequiredSecretEnv are the secret backed environment variables every
	// deployment manifest of the service must wire.
	RequiredSecretEnv []string
	// ServedHealthPaths are the health endpoints the service serves, the
	// manifest probes must point to them.
	ServedHealthPaths []string
	Logger            log.Logger
}

func (c *LinterConfig) defaults() error {
	if len(c.RequiredSecretEnv) == 0 {
		c.RequiredSecretEnv = RequiredSecretEnv
	}
	if len(c.ServedHealthPaths) == 0 {
		return fmt.Errorf("served health paths are required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "deploy.Linter"})

	return nil
}

// Linter checks deployment manifests for the configuration mistakes that
// would break the service at runtime without failing at apply time.
type Linter struct {
	requiredSecretEnv []string
	servedHealthPaths map[string]struct{}
	logger            log.Logger
}

// NewLinter returns a new manifest linter.
func NewLinter(config LinterConfig) (*Linter, error) {
	err := config.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	paths := map[string]struct{}{}
	for _, p := range config.ServedHealthPaths {
		paths[p] = struct{}{}
	}

	return &Linter{
		requiredSecretEnv: config.RequiredSecretEnv,
		servedHealthPaths: paths,
		logger:            config.Logger,
	}, nil
}

// LintManifest decodes the received manifest YAML (multi document allowed)
// and lints every Deployment object on it, other kinds are ignored. It
// returns one error per failed rule.
func (l Linter) LintManifest(ctx context.Context, data []byte) ([]error, error) {
	deployments, err := decodeDeployments(data)
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, fmt.Errorf("no Deployment objects found on the manifest")
	}

	errs := []error{}
	for _, d := range deployments {
		errs = append(errs, l.LintDeployment(ctx, d)...)
	}

	return errs, nil
}

// LintDeployment runs every lint rule against a Deployment object.
func (l Linter) LintDeployment(ctx context.Context, d *appsv1.Deployment) []error {
	rules := []struct {
		id    string
		check func(d *appsv1.Deployment) error
	}{
		{id: RuleWorkloadBasics, check: l.checkWorkloadBasics},
		{id: RulePortCoherence, check: l.checkPortCoherence},
		{id: RuleSecretConsistency, check: l.checkSecretConsistency},
		{id: RuleProbePaths, check: l.checkProbePaths},
		{id: RuleResources, check: l.checkResources},
	}

	errs := []error{}
	for _, rule := range rules {
		err := rule.check(d)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rule.id, err))
		}
	}

	return errs
}

func (l Linter) checkWorkloadBasics(d *appsv1.Deployment) error {
	if len(d.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("deployment has no containers")
	}

	if d.Spec.Replicas != nil && *d.Spec.Replicas < 1 {
		return fmt.Errorf("replicas must be at least 1")
	}

	for _, c := range d.Spec.Template.Spec.Containers {
		if c.Image == "" {
			return fmt.Errorf("container %q has no image", c.Name)
		}
	}

	return nil
}

// checkPortCoherence checks the container port, the port environment variable
// and the probe ports all agree.
func (l Linter) checkPortCoherence(d *appsv1.Deployment) error {
	for _, c := range d.Spec.Template.Spec.Containers {
		if len(c.Ports) == 0 {
			return fmt.Errorf("container %q exposes no ports", c.Name)
		}
		containerPort := c.Ports[0].ContainerPort

		for _, env := range c.Env {
			if env.Name != EnvServerPort || env.Value == "" {
				continue
			}
			envPort, err := strconv.Atoi(env.Value)
			if err != nil {
				return fmt.Errorf("%s value %q is not a number", EnvServerPort, env.Value)
			}
			if int32(envPort) != containerPort {
				return fmt.Errorf("%s value %d doesn't match container port %d", EnvServerPort, envPort, containerPort)
			}
		}

		for _, probe := range []*corev1.Probe{c.ReadinessProbe, c.LivenessProbe} {
			if probe == nil || probe.HTTPGet == nil {
				continue
			}
			if probe.HTTPGet.Port.IntValue() != int(containerPort) {
				return fmt.Errorf("probe port %d doesn't match container port %d", probe.HTTPGet.Port.IntValue(), containerPort)
			}
		}
	}

	return nil
}

// checkSecretConsistency checks every secret backed environment variable
// comes from the same secret store under a key named as the variable, and
// that the required secret set is covered.
func (l Linter) checkSecretConsistency(d *appsv1.Deployment) error {
	for _, c := range d.Spec.Template.Spec.Containers {
		secretName := ""
		seen := map[string]bool{}

		for _, env := range c.Env {
			if env.ValueFrom == nil || env.ValueFrom.SecretKeyRef == nil {
				continue
			}
			ref := env.ValueFrom.SecretKeyRef

			if ref.Key != env.Name {
				return fmt.Errorf("env %q references secret key %q, key name must match the variable", env.Name, ref.Key)
			}

			if secretName == "" {
				secretName = ref.Name
			} else if ref.Name != secretName {
				return fmt.Errorf("env %q references secret %q, other variables use %q", env.Name, ref.Name, secretName)
			}

			seen[env.Name] = true
		}

		missing := []string{}
		for _, required := range l.requiredSecretEnv {
			if !seen[required] {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required secret backed env vars: %s", strings.Join(missing, ", "))
		}
	}

	return nil
}

// checkProbePaths checks the probes poll endpoints the service serves.
func (l Linter) checkProbePaths(d *appsv1.Deployment) error {
	for _, c := range d.Spec.Template.Spec.Containers {
		if c.ReadinessProbe == nil || c.LivenessProbe == nil {
			return fmt.Errorf("container %q must declare readiness and liveness probes", c.Name)
		}

		for _, probe := range []*corev1.Probe{c.ReadinessProbe, c.LivenessProbe} {
			if probe.HTTPGet == nil {
				return fmt.Errorf("container %q probes must be HTTP probes", c.Name)
			}
			if _, ok := l.servedHealthPaths[probe.HTTPGet.Path]; !ok {
				return fmt.Errorf("probe path %q is not served by the service", probe.HTTPGet.Path)
			}
		}
	}

	return nil
}

// checkResources checks requests don't exceed limits.
func (l Linter) checkResources(d *appsv1.Deployment) error {
	for _, c := range d.Spec.Template.Spec.Containers {
		for _, res := range []corev1.ResourceName{corev1.ResourceCPU, corev1.ResourceMemory} {
			request, hasRequest := c.Resources.Requests[res]
			limit, hasLimit := c.Resources.Limits[res]
			if !hasRequest || !hasLimit {
				continue
			}
			if request.Cmp(limit) > 0 {
				return fmt.Errorf("%s request %s is over the limit %s", res, request.String(), limit.String())
			}
		}
	}

	return nil
}

// decodeDeployments decodes the Deployment objects of a multi document
// manifest, other object kinds are ignored.
func decodeDeployments(data []byte) ([]*appsv1.Deployment, error) {
	decoder := scheme.Codecs.UniversalDeserializer()

	deployments := []*appsv1.Deployment{}
	for _, doc := range splitYAML(data) {
		obj, _, err := decoder.Decode(doc, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("could not decode kubernetes object: %w", err)
		}

		if d, ok := obj.(*appsv1.Deployment); ok {
			deployments = append(deployments, d)
		}
	}

	return deployments, nil
}

// splitYAML splits a multi document YAML stream, document separators inside
// block scalars are not split points.
func splitYAML(data []byte) [][]byte {
	reader := apiyaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))

	docs := [][]byte{}
	for {
		doc, err := reader.Read()
		if err != nil {
			break
		}

		doc = bytes.TrimSpace(doc)
		if len(doc) == 0 {
			continue
		}
		docs = append(docs, doc)
	}

	return docs
}
