package k8s

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/nepremicnine/user-managing/internal/log"
)

// DryRunApiserverRepository is a Kubernetes storage that ignores the write
// operations, only logging what would have been stored.
type DryRunApiserverRepository struct {
	logger log.Logger
}

// NewDryRunApiserverRepository returns a new dry run Kubernetes storage.
func NewDryRunApiserverRepository(logger log.Logger) DryRunApiserverRepository {
	return DryRunApiserverRepository{
		logger: logger.WithValues(log.Kv{"svc": "storage.k8s.DryRunApiserverRepository"}),
	}
}

func (r DryRunApiserverRepository) EnsureDeployment(ctx context.Context, d *appsv1.Deployment) error {
	r.logger.WithValues(log.Kv{"name": d.Name, "ns": d.Namespace}).Infof("Dry run EnsureDeployment")
	return nil
}

func (r DryRunApiserverRepository) EnsureService(ctx context.Context, s *corev1.Service) error {
	r.logger.WithValues(log.Kv{"name": s.Name, "ns": s.Namespace}).Infof("Dry run EnsureService")
	return nil
}
