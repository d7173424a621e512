package provider

import (
	"context"
	"fmt"

	"github.com/RodolfoBonis/go-capture-agent/config"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	otlploggrpc "go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otlploghttp "go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewLogProvider creates a LoggerProvider exporting over OTLP. The zap bridge
// feeds it, so log-sink exchanges leave the process next to their spans.
func NewLogProvider(ctx context.Context, cfg *config.Config, res *resource.Resource, lgr logger.Logger) (*log.LoggerProvider, error) {
	settings, err := newExportSettings(cfg)
	if err != nil {
		return nil, err
	}

	var exporter log.Exporter
	switch settings.protocol {
	case protocolHTTP:
		exporter, err = otlploghttp.New(ctx, httpLogOptions(settings)...)
	default:
		exporter, err = otlploggrpc.New(ctx, grpcLogOptions(settings)...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP %s log exporter: %w", settings.protocol, err)
	}

	lgr.Info(ctx, "OTLP log exporter initialized", logger.Fields{
		"protocol": settings.protocol.String(), "endpoint": settings.endpoint,
	})

	var batch []log.BatchProcessorOption
	if cfg.Logs.BatchTimeout > 0 {
		batch = append(batch, log.WithExportInterval(cfg.Logs.BatchTimeout))
	}
	if cfg.Logs.BatchSize > 0 {
		batch = append(batch, log.WithExportMaxBatchSize(cfg.Logs.BatchSize))
	}

	return log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exporter, batch...)),
		log.WithResource(res),
	), nil
}

func grpcLogOptions(s exportSettings) []otlploggrpc.Option {
	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(s.endpoint),
		otlploggrpc.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlploggrpc.WithCompressor("gzip"))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(s.headers))
	}
	return opts
}

func httpLogOptions(s exportSettings) []otlploghttp.Option {
	opts := []otlploghttp.Option{
		otlploghttp.WithEndpoint(s.endpoint),
		otlploghttp.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlploghttp.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlploghttp.WithCompression(otlploghttp.GzipCompression))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlploghttp.WithHeaders(s.headers))
	}
	return opts
}
