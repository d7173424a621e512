package provider

import (
	"context"
	"runtime"

	"github.com/RodolfoBonis/go-capture-agent/config"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AttrApplicationID is the resource and exchange attribute carrying the
// configured application id.
const AttrApplicationID = "capture.application.id"

// BuildResource creates an OTel Resource from the agent config.
func BuildResource(ctx context.Context, cfg *config.Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.ServiceInstanceID(cfg.Resource.ServiceInstance),
		semconv.ProcessRuntimeName("go"),
		semconv.ProcessRuntimeVersion(runtime.Version()),
	}

	if cfg.Namespace != "" {
		attrs = append(attrs, semconv.ServiceNamespace(cfg.Namespace))
	}
	if cfg.Resource.DeploymentEnvironment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Resource.DeploymentEnvironment))
	}
	if cfg.ApplicationID != "" {
		attrs = append(attrs, attribute.String(AttrApplicationID, cfg.ApplicationID))
	}
	if cfg.Resource.K8sPodName != "" {
		attrs = append(attrs, semconv.K8SPodName(cfg.Resource.K8sPodName))
	}
	if cfg.Resource.K8sNamespace != "" {
		attrs = append(attrs, semconv.K8SNamespaceName(cfg.Resource.K8sNamespace))
	}
	for key, value := range cfg.Resource.CustomAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithProcess(),
	)
}
