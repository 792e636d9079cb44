// Package v1
//
// Example YAML deployment spec:
//
//	version: "deploy/v1"
//	name: "user-managing"
//	namespace: "nepremicnine"
//	image: "potocnikvid/nepremicnine-user-managing"
//	replicas: 1
//	port: 8080
//	mode: "release"
//	secret_store: "user-managing-secrets"
//	secret_env:
//	  - SUPABASE_SERVICE_ROLE_KEY
//	  - SUPABASE_URL
//	  - SUPABASE_KEY
//	  - SUPABASE_JWT_SECRET
//	  - FRONTEND_URL
//	  - BACKEND_URL
//	resources:
//	  limits:
//	    cpu: "0.1"
//	    memory: "256Mi"
//	  requests:
//	    cpu: "0.01"
//	    memory: "32Mi"
//	readiness_probe:
//	  path: /user-managing/health/readiness
//	  initial_delay: 60s
//	  period: 30s
//	  timeout: 30s
//	  success_threshold: 10
//	  failure_threshold: 30
//	liveness_probe:
//	  path: /user-managing/health/general
//	  initial_delay: 30s
//	  period: 10s
package v1

import prommodel "github.com/prometheus/common/model"

const Version = "deploy/v1"

// Spec represents the root type of the deployment declaration specification.
type Spec struct {
	// Version is the version of the spec.
	Version string `yaml:"version"`
	// Name is the name of the service deployment.
	Name string `yaml:"name"`
	// Namespace is the Kubernetes namespace the service is deployed on.
	Namespace string `yaml:"namespace,omitempty"`
	// Image is the container image of the service.
	Image string `yaml:"image"`
	// Replicas is the number of pods of the deployment.
	Replicas int32 `yaml:"replicas,omitempty"`
	// Port is the container port the service binds and exposes.
	Port int32 `yaml:"port,omitempty"`
	// Mode is the service run mode (release or debug).
	Mode string `yaml:"mode,omitempty"`
	// SecretStore is the name of the Kubernetes secret the secret backed
	// environment variables come from.
	SecretStore string `yaml:"secret_store,omitempty"`
	// SecretEnv are the environment variable names injected from the
	// secret store, the key on the secret matches the variable name.
	SecretEnv []string `yaml:"secret_env,omitempty"`
	// ExtraEnv are extra literal environment variables.
	ExtraEnv map[string]string `yaml:"extra_env,omitempty"`
	// Resources are the container resource requests and limits.
	Resources *Resources `yaml:"resources,omitempty"`
	// ReadinessProbe gates the traffic admission of the pods.
	ReadinessProbe *Probe `yaml:"readiness_probe,omitempty"`
	// LivenessProbe triggers pod restarts when failing.
	LivenessProbe *Probe `yaml:"liveness_probe,omitempty"`
}

// Resources are the container resource quantities, expressed as Kubernetes
// resource quantity strings (e.g "0.1", "256Mi").
type Resources struct {
	Limits   ResourceValues `yaml:"limits,omitempty"`
	Requests ResourceValues `yaml:"requests,omitempty"`
}

// ResourceValues are the CPU and memory quantities of a resources block.
type ResourceValues struct {
	CPU    string `yaml:"cpu,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// Probe is an HTTP health probe of the deployment, unset numeric fields fall
// back to the Kubernetes defaults.
type Probe struct {
	// Path is the HTTP path polled by the orchestrator.
	Path string `yaml:"path"`
	// InitialDelay is the wait before the first poll.
	InitialDelay prommodel.Duration `yaml:"initial_delay,omitempty"`
	// Period is the poll interval.
	Period prommodel.Duration `yaml:"period,omitempty"`
	// Timeout is the poll request timeout.
	Timeout prommodel.Duration `yaml:"timeout,omitempty"`
	// SuccessThreshold is the consecutive successes required to pass.
	SuccessThreshold int32 `yaml:"success_threshold,omitempty"`
	// FailureThreshold is the consecutive failures required to fail.
	FailureThreshold int32 `yaml:"failure_threshold,omitempty"`
}
