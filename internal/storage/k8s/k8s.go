package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kubeerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/nepremicnine/user-managing/internal/log"
)

// ApiserverRepository knows how to store the service deployment objects on a
// Kubernetes cluster through the apiserver.
type ApiserverRepository struct {
	kubeCli kubernetes.Interface
	logger  log.Logger
}

// NewApiserverRepository returns a new Kubernetes Apiserver storage.
func NewApiserverRepository(kubeCli kubernetes.Interface, logger log.Logger) ApiserverRepository {
	return ApiserverRepository{
		kubeCli: kubeCli,
		logger:  logger.WithValues(log.Kv{"svc": "storage.k8s.ApiserverRepository"}),
	}
}

// EnsureDeployment creates or updates a Deployment on the cluster.
func (r ApiserverRepository) EnsureDeployment(ctx context.Context, d *appsv1.Deployment) error {
	logger := r.logger.WithCtxValues(ctx).WithValues(log.Kv{"name": d.Name, "ns": d.Namespace})

	stored, err := r.kubeCli.AppsV1().Deployments(d.Namespace).Get(ctx, d.Name, metav1.GetOptions{})
	if err != nil {
		if !kubeerrors.IsNotFound(err) {
			return fmt.Errorf("could not get deployment: %w", err)
		}

		_, err = r.kubeCli.AppsV1().Deployments(d.Namespace).Create(ctx, d, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("could not create deployment: %w", err)
		}
		logger.Debugf("Deployment created")

		return nil
	}

	d = d.DeepCopy()
	d.ObjectMeta.ResourceVersion = stored.ResourceVersion
	_, err = r.kubeCli.AppsV1().Deployments(d.Namespace).Update(ctx, d, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("could not update deployment: %w", err)
	}
	logger.Debugf("Deployment updated")

	return nil
}

// EnsureService creates or updates a Service on the cluster, the cluster IP
// of the stored object is kept.
func (r ApiserverRepository) EnsureService(ctx context.Context, s *corev1.Service) error {
	logger := r.logger.WithCtxValues(ctx).WithValues(log.Kv{"name": s.Name, "ns": s.Namespace})

	stored, err := r.kubeCli.CoreV1().Services(s.Namespace).Get(ctx, s.Name, metav1.GetOptions{})
	if err != nil {
		if !kubeerrors.IsNotFound(err) {
			return fmt.Errorf("could not get service: %w", err)
		}

		_, err = r.kubeCli.CoreV1().Services(s.Namespace).Create(ctx, s, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("could not create service: %w", err)
		}
		logger.Debugf("Service created")

		return nil
	}

	s = s.DeepCopy()
	s.ObjectMeta.ResourceVersion = stored.ResourceVersion
	s.Spec.ClusterIP = stored.Spec.ClusterIP
	_, err = r.kubeCli.CoreV1().Services(s.Namespace).Update(ctx, s, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("could not update service: %w", err)
	}
	logger.Debugf("Service updated")

	return nil
}
