package io

import (
	"context"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/serializer/json"

	"github.com/nepremicnine/user-managing/internal/info"
	"github.com/nepremicnine/user-managing/internal/log"
)

// NewIOWriterK8sObjectYAMLRepo returns a repo that stores Kubernetes objects
// as a multi document YAML manifest on an io.Writer.
func NewIOWriterK8sObjectYAMLRepo(writer io.Writer, logger log.Logger) IOWriterK8sObjectYAMLRepo {
	return IOWriterK8sObjectYAMLRepo{
		writer:  writer,
		encoder: json.NewYAMLSerializer(json.DefaultMetaFactory, nil, nil),
		logger:  logger.WithValues(log.Kv{"svc": "storage.io.IOWriterK8sObjectYAMLRepo"}),
	}
}

// IOWriterK8sObjectYAMLRepo knows how to store the generated deployment
// objects grouped on an io.Writer in Kubernetes YAML format.
type IOWriterK8sObjectYAMLRepo struct {
	writer  io.Writer
	encoder runtime.Encoder
	logger  log.Logger
}

func (i IOWriterK8sObjectYAMLRepo) StoreObjects(ctx context.Context, objs []runtime.Object) error {
	for _, obj := range objs {
		_, err := i.writer.Write([]byte(yamlTopDisclaimer))
		if err != nil {
			return fmt.Errorf("could not write top disclaimer: %w", err)
		}

		err = i.encoder.Encode(obj, i.writer)
		if err != nil {
			return fmt.Errorf("could not encode k8s object: %w", err)
		}
	}

	logger := i.logger.WithCtxValues(ctx)
	logger.WithValues(log.Kv{"objects": len(objs)}).Infof("Kubernetes manifests written")

	return nil
}

var yamlTopDisclaimer = fmt.Sprintf(`
---
# Code generated by user-managing (%s).
# DO NOT EDIT.

`, info.Version)
