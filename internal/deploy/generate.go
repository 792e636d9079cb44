package deploy

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/nepremicnine/user-managing/internal/log"
)

// Labels stamped on every generated object.
const (
	labelComponent = "app.kubernetes.io/component"
	labelManagedBy = "app.kubernetes.io/managed-by"
	labelName      = "app.kubernetes.io/name"

	managedByValue = "user-managing"
	componentValue = "api"
)

// GeneratorConfig is the manifest generator configuration.
type GeneratorConfig struct {
	// ExtraLabels are added to every generated object metadata.
	ExtraLabels map[string]string
	Logger      log.Logger
}

func (c *GeneratorConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "deploy.Generator"})

	return nil
}

// Generator knows how to map a deployment model to the Kubernetes objects the
// service runs with on the cluster.
type Generator struct {
	extraLabels map[string]string
	logger      log.Logger
}

// NewGenerator returns a new manifest generator.
func NewGenerator(config GeneratorConfig) (*Generator, error) {
	err := config.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Generator{
		extraLabels: config.ExtraLabels,
		logger:      config.Logger,
	}, nil
}

// GenerateRequest is the request of Generate.
type GenerateRequest struct {
	Deployment Deployment
}

// GenerateResponse is the response of Generate.
type GenerateResponse struct {
	Deployment *appsv1.Deployment
	Service    *corev1.Service
}

// Generate maps the deployment model to a Kubernetes Deployment and its
// companion Service.
func (g Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	err := req.Deployment.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}

	d := req.Deployment

	resp := &GenerateResponse{
		Deployment: g.generateDeployment(d),
		Service:    g.generateService(d),
	}

	g.logger.WithCtxValues(ctx).WithValues(log.Kv{"name": d.Name}).Infof("Kubernetes manifests generated")

	return resp, nil
}

func (g Generator) generateDeployment(d Deployment) *appsv1.Deployment {
	replicas := d.Replicas
	selectorLabels := map[string]string{labelName: d.Name}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apps/v1",
			Kind:       "Deployment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      d.Name,
			Namespace: d.Namespace,
			Labels:    g.objectLabels(d),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: g.objectLabels(d),
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  d.Name,
							Image: d.Image,
							Ports: []corev1.ContainerPort{
								{ContainerPort: d.Port, Protocol: corev1.ProtocolTCP},
							},
							Env: g.generateEnv(d),
							Resources: corev1.ResourceRequirements{
								Limits: corev1.ResourceList{
									corev1.ResourceCPU:    d.Resources.CPULimit,
									corev1.ResourceMemory: d.Resources.MemoryLimit,
								},
								Requests: corev1.ResourceList{
									corev1.ResourceCPU:    d.Resources.CPURequest,
									corev1.ResourceMemory: d.Resources.MemoryRequest,
								},
							},
							ReadinessProbe: g.generateProbe(d.ReadinessProbe, d.Port),
							LivenessProbe:  g.generateProbe(d.LivenessProbe, d.Port),
						},
					},
				},
			},
		},
	}
}

func (g Generator) generateService(d Deployment) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      d.Name,
			Namespace: d.Namespace,
			Labels:    g.objectLabels(d),
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{labelName: d.Name},
			Ports: []corev1.ServicePort{
				{
					Port:       d.Port,
					TargetPort: intstr.FromInt(int(d.Port)),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

// generateEnv stamps the literal environment first and the secret backed one
// afterwards, every secret key comes from the same secret store.
func (g Generator) generateEnv(d Deployment) []corev1.EnvVar {
	env := []corev1.EnvVar{
		{Name: EnvServerPort, Value: strconv.Itoa(int(d.Port))},
		{Name: EnvServerMode, Value: d.Mode},
	}

	for _, name := range sortedKeys(d.ExtraEnv) {
		env = append(env, corev1.EnvVar{Name: name, Value: d.ExtraEnv[name]})
	}

	for _, key := range d.SecretEnv {
		env = append(env, corev1.EnvVar{
			Name: key,
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: d.SecretStore},
					Key:                  key,
				},
			},
		})
	}

	return env
}

func (g Generator) generateProbe(p Probe, port int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: p.Path,
				Port: intstr.FromInt(int(port)),
			},
		},
		InitialDelaySeconds: int32(p.InitialDelay.Seconds()),
		PeriodSeconds:       int32(p.Period.Seconds()),
		TimeoutSeconds:      int32(p.Timeout.Seconds()),
		SuccessThreshold:    p.SuccessThreshold,
		FailureThreshold:    p.FailureThreshold,
	}
}

// sortedKeys keeps the generated env deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func (g Generator) objectLabels(d Deployment) map[string]string {
	labels := map[string]string{
		labelName:      d.Name,
		labelComponent: componentValue,
		labelManagedBy: managedByValue,
	}
	for k, v := range g.extraLabels {
		labels[k] = v
	}

	return labels
}
