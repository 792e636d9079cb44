package k8s

import (
	kubernetesfake "k8s.io/client-go/kubernetes/fake"

	"github.com/nepremicnine/user-managing/internal/log"
)

// NewFakeApiserverRepository returns a Kubernetes storage that fakes all the
// apiserver calls using in-memory clients, a cluster is not required.
func NewFakeApiserverRepository(logger log.Logger) ApiserverRepository {
	return NewApiserverRepository(
		kubernetesfake.NewSimpleClientset(),
		logger.WithValues(log.Kv{"mode": "fake"}),
	)
}
