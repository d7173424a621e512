package sink

import (
	"context"
	"strings"

	"github.com/RodolfoBonis/go-capture-agent/provider"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set by SpanSink.
const (
	AttrTransactionID         = "capture.transaction_id"
	AttrRequestBody           = "http.request.body"
	AttrRequestBodySize       = "http.request.body.size"
	AttrRequestBodyTruncated  = "http.request.body.truncated"
	AttrResponseBody          = "http.response.body"
	AttrResponseBodySize      = "http.response.body.size"
	AttrResponseBodyTruncated = "http.response.body.truncated"
	requestHeaderPrefix       = "http.request.header."
	responseHeaderPrefix      = "http.response.header."
)

// SpanSink enriches the span active in the send context with the captured
// bodies and headers. Without a recording span it does nothing.
type SpanSink struct{}

// NewSpanSink returns a SpanSink.
func NewSpanSink() *SpanSink {
	return &SpanSink{}
}

func (s *SpanSink) Name() string { return "span" }

func (s *SpanSink) Send(ctx context.Context, ex *Exchange) error {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return nil
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrTransactionID, ex.TransactionID),
		attribute.Int(AttrRequestBodySize, ex.Request.BodySize),
		attribute.Int(AttrResponseBodySize, ex.Response.BodySize),
	}
	if ex.ApplicationID != "" {
		attrs = append(attrs, attribute.String(provider.AttrApplicationID, ex.ApplicationID))
	}
	if ex.Request.Body != "" {
		attrs = append(attrs, attribute.String(AttrRequestBody, ex.Request.Body))
	}
	if ex.Request.BodyTruncated {
		attrs = append(attrs, attribute.Bool(AttrRequestBodyTruncated, true))
	}
	if ex.Response.Body != "" {
		attrs = append(attrs, attribute.String(AttrResponseBody, ex.Response.Body))
	}
	if ex.Response.BodyTruncated {
		attrs = append(attrs, attribute.Bool(AttrResponseBodyTruncated, true))
	}
	attrs = appendHeaders(attrs, requestHeaderPrefix, ex.Request.Headers)
	attrs = appendHeaders(attrs, responseHeaderPrefix, ex.Response.Headers)

	span.SetAttributes(attrs...)

	for _, msg := range ex.CaptureErrors {
		span.AddEvent("capture.error", trace.WithAttributes(attribute.String("error.message", msg)))
	}
	return nil
}

func (s *SpanSink) Close(context.Context) error { return nil }

// Header attributes follow the semantic conventions: lower-case name, string
// slice value.
func appendHeaders(attrs []attribute.KeyValue, prefix string, headers map[string]string) []attribute.KeyValue {
	for name, value := range headers {
		attrs = append(attrs, attribute.StringSlice(prefix+strings.ToLower(name), []string{value}))
	}
	return attrs
}
