package io_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/nepremicnine/user-managing/internal/log"
	storageio "github.com/nepremicnine/user-managing/internal/storage/io"
)

func TestIOWriterK8sObjectYAMLRepoStoreObjects(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	deployment := &appsv1.Deployment{
		TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{Name: "user-managing"},
	}
	service := &corev1.Service{
		TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{Name: "user-managing"},
	}

	var b bytes.Buffer
	repo := storageio.NewIOWriterK8sObjectYAMLRepo(&b, log.Noop)

	err := repo.StoreObjects(context.TODO(), []runtime.Object{deployment, service})
	require.NoError(err)

	got := b.String()
	assert.Contains(got, "kind: Deployment")
	assert.Contains(got, "kind: Service")
	assert.Contains(got, "# Code generated by user-managing")
	// One document per object.
	assert.Equal(2, bytes.Count(b.Bytes(), []byte("\n---\n")))
}
