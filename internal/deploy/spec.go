package deploy

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v2"
	"k8s.io/apimachinery/pkg/api/resource"

	deployv1 "github.com/nepremicnine/user-managing/pkg/deploy/api/v1"
)

type yamlSpecLoader bool

// YAMLSpecLoader knows how to load YAML deployment specs and converts them to
// a model, unset fields fall back to the service defaults.
const YAMLSpecLoader = yamlSpecLoader(false)

func (y yamlSpecLoader) LoadSpec(ctx context.Context, data []byte) (*Deployment, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("spec is required")
	}

	s := deployv1.Spec{}
	err := yaml.Unmarshal(data, &s)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshall YAML spec correctly: %w", err)
	}

	if s.Version != deployv1.Version {
		return nil, fmt.Errorf("invalid spec version, should be %q", deployv1.Version)
	}

	m, err := y.mapSpecToModel(s)
	if err != nil {
		return nil, fmt.Errorf("could not map to model: %w", err)
	}

	err = m.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid deployment spec: %w", err)
	}

	return m, nil
}

func (yamlSpecLoader) mapSpecToModel(spec deployv1.Spec) (*Deployment, error) {
	m := DefaultDeployment()

	if spec.Name != "" {
		m.Name = spec.Name
	}
	m.Namespace = spec.Namespace
	if spec.Image != "" {
		m.Image = spec.Image
	}
	if spec.Replicas != 0 {
		m.Replicas = spec.Replicas
	}
	if spec.Port != 0 {
		m.Port = spec.Port
	}
	if spec.Mode != "" {
		m.Mode = spec.Mode
	}
	if spec.SecretStore != "" {
		m.SecretStore = spec.SecretStore
	}
	if len(spec.SecretEnv) != 0 {
		m.SecretEnv = append([]string{}, spec.SecretEnv...)
	}
	if len(spec.ExtraEnv) != 0 {
		m.ExtraEnv = spec.ExtraEnv
	}

	if spec.Resources != nil {
		resources, err := mapSpecResources(*spec.Resources)
		if err != nil {
			return nil, err
		}
		m.Resources = *resources
	}

	if spec.ReadinessProbe != nil {
		m.ReadinessProbe = mapSpecProbe(*spec.ReadinessProbe)
	}
	if spec.LivenessProbe != nil {
		m.LivenessProbe = mapSpecProbe(*spec.LivenessProbe)
	}

	return &m, nil
}

func mapSpecResources(specResources deployv1.Resources) (*Resources, error) {
	r := Resources{}
	for _, q := range []struct {
		name  string
		value string
		dst   *resource.Quantity
	}{
		{name: "cpu limit", value: specResources.Limits.CPU, dst: &r.CPULimit},
		{name: "memory limit", value: specResources.Limits.Memory, dst: &r.MemoryLimit},
		{name: "cpu request", value: specResources.Requests.CPU, dst: &r.CPURequest},
		{name: "memory request", value: specResources.Requests.Memory, dst: &r.MemoryRequest},
	} {
		parsed, err := resource.ParseQuantity(q.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s quantity %q: %w", q.name, q.value, err)
		}
		*q.dst = parsed
	}

	return &r, nil
}

func mapSpecProbe(specProbe deployv1.Probe) Probe {
	return Probe{
		Path:             specProbe.Path,
		InitialDelay:     time.Duration(specProbe.InitialDelay),
		Period:           time.Duration(specProbe.Period),
		Timeout:          time.Duration(specProbe.Timeout),
		SuccessThreshold: specProbe.SuccessThreshold,
		FailureThreshold: specProbe.FailureThreshold,
	}
}
