package deploy

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/nepremicnine/user-managing/pkg/common/conventions"
)

// Deployment facts of the service, used as the spec defaults and asserted by
// the manifest lint.
const (
	DefaultName        = "user-managing"
	DefaultImage       = "potocnikvid/nepremicnine-user-managing"
	DefaultPort        = 8080
	DefaultReplicas    = 1
	DefaultMode        = "release"
	DefaultSecretStore = "user-managing-secrets"

	DefaultCPULimit      = "0.1"
	DefaultMemoryLimit   = "256Mi"
	DefaultCPURequest    = "0.01"
	DefaultMemoryRequest = "32Mi"
)

// RequiredSecretEnv are the secret backed environment variables the service
// needs at runtime.
var RequiredSecretEnv = []string{
	"SUPABASE_SERVICE_ROLE_KEY",
	"SUPABASE_URL",
	"SUPABASE_KEY",
	"SUPABASE_JWT_SECRET",
	"FRONTEND_URL",
	"BACKEND_URL",
}

// Literal environment variables stamped on the container.
const (
	EnvServerPort = "USER_MANAGING_SERVER_PORT"
	EnvServerMode = "USER_MANAGING_SERVER_MODE"
)

// Probe is an HTTP health probe of the deployment.
type Probe struct {
	Path             string `validate:"required,startswith=/"`
	InitialDelay     time.Duration
	Period           time.Duration
	Timeout          time.Duration
	SuccessThreshold int32 `validate:"gte=0"`
	FailureThreshold int32 `validate:"gte=0"`
}

// Resources are the container resource quantities.
type Resources struct {
	CPULimit      resource.Quantity
	MemoryLimit   resource.Quantity
	CPURequest    resource.Quantity
	MemoryRequest resource.Quantity
}

// Deployment is the deployment model of the service, already defaulted and
// with parsed resource quantities.
type Deployment struct {
	Name           string `validate:"required"`
	Namespace      string
	Image          string `validate:"required"`
	Replicas       int32  `validate:"gte=1"`
	Port           int32  `validate:"gt=0,lte=65535"`
	Mode           string `validate:"required,oneof=release debug"`
	SecretStore    string `validate:"required"`
	SecretEnv      []string
	ExtraEnv       map[string]string
	Resources      Resources
	ReadinessProbe Probe
	LivenessProbe  Probe
}

// Validate validates the deployment model.
func (d Deployment) Validate() error {
	err := deployValidate.Struct(d)
	if err != nil {
		return err
	}

	for _, probe := range []Probe{d.ReadinessProbe, d.LivenessProbe} {
		err := deployValidate.Struct(probe)
		if err != nil {
			return err
		}
	}

	// Requests over limits would make the deployment unschedulable.
	if d.Resources.CPURequest.Cmp(d.Resources.CPULimit) > 0 {
		return fmt.Errorf("cpu request can't be over the cpu limit")
	}
	if d.Resources.MemoryRequest.Cmp(d.Resources.MemoryLimit) > 0 {
		return fmt.Errorf("memory request can't be over the memory limit")
	}

	return nil
}

// DefaultDeployment returns the deployment of the service as it runs on the
// platform cluster.
func DefaultDeployment() Deployment {
	return Deployment{
		Name:        DefaultName,
		Image:       DefaultImage,
		Replicas:    DefaultReplicas,
		Port:        DefaultPort,
		Mode:        DefaultMode,
		SecretStore: DefaultSecretStore,
		SecretEnv:   append([]string{}, RequiredSecretEnv...),
		Resources: Resources{
			CPULimit:      resource.MustParse(DefaultCPULimit),
			MemoryLimit:   resource.MustParse(DefaultMemoryLimit),
			CPURequest:    resource.MustParse(DefaultCPURequest),
			MemoryRequest: resource.MustParse(DefaultMemoryRequest),
		},
		ReadinessProbe: Probe{
			Path:             conventions.HealthReadinessPath,
			InitialDelay:     60 * time.Second,
			Period:           30 * time.Second,
			Timeout:          30 * time.Second,
			SuccessThreshold: 10,
			FailureThreshold: 30,
		},
		LivenessProbe: Probe{
			Path:         conventions.HealthGeneralPath,
			InitialDelay: 30 * time.Second,
			Period:       10 * time.Second,
		},
	}
}

var deployValidate = func() *validator.Validate {
	return validator.New()
}()
