package provider

import (
	"context"
	"fmt"

	"github.com/RodolfoBonis/go-capture-agent/config"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	otlpmetricgrpc "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otlpmetrichttp "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewMetricProvider creates a MeterProvider with a periodic OTLP reader.
func NewMetricProvider(ctx context.Context, cfg *config.Config, res *resource.Resource, log logger.Logger) (*metric.MeterProvider, error) {
	settings, err := newExportSettings(cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch settings.protocol {
	case protocolHTTP:
		exporter, err = otlpmetrichttp.New(ctx, httpMetricOptions(settings)...)
	default:
		exporter, err = otlpmetricgrpc.New(ctx, grpcMetricOptions(settings)...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP %s metric exporter: %w", settings.protocol, err)
	}

	log.Info(ctx, "OTLP metric exporter initialized", logger.Fields{
		"protocol": settings.protocol.String(), "endpoint": settings.endpoint,
	})

	var readerOpts []metric.PeriodicReaderOption
	if cfg.Metrics.Interval > 0 {
		readerOpts = append(readerOpts, metric.WithInterval(cfg.Metrics.Interval))
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, readerOpts...)),
		metric.WithResource(res),
	), nil
}

func grpcMetricOptions(s exportSettings) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(s.endpoint),
		otlpmetricgrpc.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlpmetricgrpc.WithCompressor("gzip"))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(s.headers))
	}
	if s.retry {
		opts = append(opts, otlpmetricgrpc.WithRetry(otlpmetricgrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: s.retryInitial,
			MaxInterval:     s.retryMax,
			MaxElapsedTime:  s.retryDeadline,
		}))
	}
	return opts
}

func httpMetricOptions(s exportSettings) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(s.endpoint),
		otlpmetrichttp.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(s.headers))
	}
	if s.retry {
		opts = append(opts, otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: s.retryInitial,
			MaxInterval:     s.retryMax,
			MaxElapsedTime:  s.retryDeadline,
		}))
	}
	return opts
}
