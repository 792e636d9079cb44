package k8s_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubernetesfake "k8s.io/client-go/kubernetes/fake"

	"github.com/nepremicnine/user-managing/internal/log"
	storagek8s "github.com/nepremicnine/user-managing/internal/storage/k8s"
)

func testDeployment(image string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "user-managing", Namespace: "nepremicnine"},
		Spec: appsv1.DeploymentSpec{
			Template: corev1.PodTemplateSpec{
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{Name: "user-managing", Image: image}},
				},
			},
		},
	}
}

func testService() *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "user-managing", Namespace: "nepremicnine"},
		Spec: corev1.ServiceSpec{
			Ports: []corev1.ServicePort{{Port: 8080}},
		},
	}
}

func TestEnsureDeployment(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := kubernetesfake.NewSimpleClientset()
	repo := storagek8s.NewApiserverRepository(cli, log.Noop)

	// First ensure creates.
	err := repo.EnsureDeployment(context.TODO(), testDeployment("img:v1"))
	require.NoError(err)

	stored, err := cli.AppsV1().Deployments("nepremicnine").Get(context.TODO(), "user-managing", metav1.GetOptions{})
	require.NoError(err)
	assert.Equal("img:v1", stored.Spec.Template.Spec.Containers[0].Image)

	// Second ensure updates in place.
	err = repo.EnsureDeployment(context.TODO(), testDeployment("img:v2"))
	require.NoError(err)

	stored, err = cli.AppsV1().Deployments("nepremicnine").Get(context.TODO(), "user-managing", metav1.GetOptions{})
	require.NoError(err)
	assert.Equal("img:v2", stored.Spec.Template.Spec.Containers[0].Image)
}

func TestEnsureService(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cli := kubernetesfake.NewSimpleClientset()
	repo := storagek8s.NewApiserverRepository(cli, log.Noop)

	err := repo.EnsureService(context.TODO(), testService())
	require.NoError(err)

	// Simulate the cluster allocating a cluster IP.
	stored, err := cli.CoreV1().Services("nepremicnine").Get(context.TODO(), "user-managing", metav1.GetOptions{})
	require.NoError(err)
	stored.Spec.ClusterIP = "10.0.0.42"
	_, err = cli.CoreV1().Services("nepremicnine").Update(context.TODO(), stored, metav1.UpdateOptions{})
	require.NoError(err)

	// Updating keeps the allocated cluster IP.
	updated := testService()
	updated.Spec.Ports[0].Port = 9090
	err = repo.EnsureService(context.TODO(), updated)
	require.NoError(err)

	stored, err = cli.CoreV1().Services("nepremicnine").Get(context.TODO(), "user-managing", metav1.GetOptions{})
	require.NoError(err)
	assert.Equal(int32(9090), stored.Spec.Ports[0].Port)
	assert.Equal("10.0.0.42", stored.Spec.ClusterIP)
}
