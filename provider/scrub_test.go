package provider

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestScrubProcessor_OnStart(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewScrubProcessor(NewHTTPScrubber(defaultCaptureConfig(), defaultScrubConfig()))),
		sdktrace.WithSpanProcessor(recorder),
	)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "GET /login",
		trace.WithAttributes(
			attribute.String("url.query", "user=ana&token=abc"),
			attribute.String("url.full", "http://svc/login?password=pw"),
			attribute.String("password", "direct"),
			attribute.String("http.route", "/login"),
			attribute.Int("http.response.status_code", 200),
		),
	)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	got := map[attribute.Key]string{}
	for _, attr := range spans[0].Attributes() {
		got[attr.Key] = attr.Value.Emit()
	}

	want := map[attribute.Key]string{
		"url.query":                 "user=ana&token=[REDACTED]",
		"url.full":                  "http://svc/login?password=[REDACTED]",
		"password":                  "[REDACTED]",
		"http.route":                "/login",
		"http.response.status_code": "200",
	}
	for key, val := range want {
		if got[key] != val {
			t.Errorf("%s = %q, want %q", key, got[key], val)
		}
	}
}
