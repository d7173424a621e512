package provider

import (
	"context"
	"fmt"

	"github.com/RodolfoBonis/go-capture-agent/config"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	otlptracegrpc "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTraceProvider creates a TracerProvider exporting over OTLP. Spans carry
// the server side of captured exchanges, so sampling is parent based and the
// scrub processor runs ahead of the batcher when scrubbing is enabled.
func NewTraceProvider(ctx context.Context, cfg *config.Config, res *resource.Resource, log logger.Logger) (*sdktrace.TracerProvider, error) {
	settings, err := newExportSettings(cfg)
	if err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	switch settings.protocol {
	case protocolHTTP:
		exporter, err = otlptracehttp.New(ctx, httpTraceOptions(settings)...)
	default:
		exporter, err = otlptracegrpc.New(ctx, grpcTraceOptions(settings)...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP %s trace exporter: %w", settings.protocol, err)
	}

	log.Info(ctx, "OTLP trace exporter initialized", logger.Fields{
		"protocol": settings.protocol.String(), "endpoint": settings.endpoint,
	})

	return NewTraceProviderWithExporter(cfg, res, exporter), nil
}

// NewTraceProviderWithExporter builds the provider around an existing exporter.
func NewTraceProviderWithExporter(cfg *config.Config, res *resource.Resource, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Traces.SamplingRate))),
	}

	if cfg.Scrub.Enabled {
		opts = append(opts, sdktrace.WithSpanProcessor(NewScrubProcessor(NewHTTPScrubber(cfg.Capture, cfg.Scrub))))
	}

	var batch []sdktrace.BatchSpanProcessorOption
	if cfg.Traces.BatchTimeout > 0 {
		batch = append(batch, sdktrace.WithBatchTimeout(cfg.Traces.BatchTimeout))
	}
	if cfg.Traces.BatchSize > 0 {
		batch = append(batch, sdktrace.WithMaxExportBatchSize(cfg.Traces.BatchSize))
	}
	if cfg.Traces.QueueSize > 0 {
		batch = append(batch, sdktrace.WithMaxQueueSize(cfg.Traces.QueueSize))
	}
	opts = append(opts, sdktrace.WithBatcher(exporter, batch...))

	return sdktrace.NewTracerProvider(opts...)
}

func grpcTraceOptions(s exportSettings) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(s.endpoint),
		otlptracegrpc.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlptracegrpc.WithCompressor("gzip"))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(s.headers))
	}
	if s.retry {
		opts = append(opts, otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: s.retryInitial,
			MaxInterval:     s.retryMax,
			MaxElapsedTime:  s.retryDeadline,
		}))
	}
	return opts
}

func httpTraceOptions(s exportSettings) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(s.endpoint),
		otlptracehttp.WithTimeout(s.timeout),
	}
	if s.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if s.gzip {
		opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
	}
	if len(s.headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(s.headers))
	}
	if s.retry {
		opts = append(opts, otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: s.retryInitial,
			MaxInterval:     s.retryMax,
			MaxElapsedTime:  s.retryDeadline,
		}))
	}
	return opts
}
