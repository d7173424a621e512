package middleware

import (
	"context"

	"github.com/RodolfoBonis/go-capture-agent/sink"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	exchanges    metric.Int64Counter
	duration     metric.Float64Histogram
	bodySize     metric.Int64Histogram
	captureErrs  metric.Int64Counter
	sinkFailures metric.Int64Counter
}

// instruments are created lazily so that a Filter built before agent.Init
// reports through the real meter provider.
func (f *Filter) instruments() *instruments {
	f.metricsOnce.Do(func() {
		meter := f.agent.GetMeter(scopeName)
		cfg := f.agent.Config().Metrics
		m := &instruments{}

		m.exchanges, _ = meter.Int64Counter(
			"capture.exchanges",
			metric.WithDescription("HTTP exchanges captured"),
		)
		m.duration, _ = meter.Float64Histogram(
			"capture.exchange.duration",
			metric.WithDescription("Duration of captured HTTP exchanges"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(cfg.LatencyBoundaries...),
		)
		m.bodySize, _ = meter.Int64Histogram(
			"capture.body.size",
			metric.WithDescription("Size of captured bodies before truncation"),
			metric.WithUnit("By"),
			metric.WithExplicitBucketBoundaries(cfg.SizeBoundaries...),
		)
		m.captureErrs, _ = meter.Int64Counter(
			"capture.errors",
			metric.WithDescription("Capture failures that left the exchange intact"),
		)
		m.sinkFailures, _ = meter.Int64Counter(
			"capture.sink.failures",
			metric.WithDescription("Exchanges at least one sink failed to deliver"),
		)

		f.metrics = m
	})
	return f.metrics
}

// Attributes stay low-cardinality: the route pattern, never the raw path.
func (m *instruments) record(ctx context.Context, ex *sink.Exchange) {
	route := ex.Request.Route
	if route == "" {
		route = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", ex.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.response.status_code", ex.Response.Status),
	)

	if m.exchanges != nil {
		m.exchanges.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, ex.Duration.Seconds(), attrs)
	}
	if m.bodySize != nil {
		m.bodySize.Record(ctx, int64(ex.Request.BodySize), metric.WithAttributes(attribute.String("direction", "request")))
		m.bodySize.Record(ctx, int64(ex.Response.BodySize), metric.WithAttributes(attribute.String("direction", "response")))
	}
	if m.captureErrs != nil && len(ex.CaptureErrors) > 0 {
		m.captureErrs.Add(ctx, int64(len(ex.CaptureErrors)))
	}
}

func (m *instruments) sinkFailed(ctx context.Context) {
	if m.sinkFailures != nil {
		m.sinkFailures.Add(ctx, 1)
	}
}
