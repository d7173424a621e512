// Package sink delivers captured HTTP exchanges to telemetry destinations.
// Sinks forward and forget: nothing is stored once Send returns.
package sink

import (
	"time"

	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/goccy/go-json"
)

// Exchange is one captured request/response pair.
type Exchange struct {
	TransactionID string        `json:"transaction_id"`
	ApplicationID string        `json:"application_id,omitempty"`
	Service       string        `json:"service,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Request       Request       `json:"request"`
	Response      Response      `json:"response"`
	// CaptureErrors lists capture failures that did not stop the exchange.
	CaptureErrors []string `json:"capture_errors,omitempty"`
}

// Request is the captured inbound side.
type Request struct {
	Method        string            `json:"method"`
	URI           string            `json:"uri"`
	Route         string            `json:"route,omitempty"`
	ClientIP      string            `json:"client_ip,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string            `json:"body,omitempty"`
	BodySize      int               `json:"body_size"`
	BodyTruncated bool              `json:"body_truncated,omitempty"`
	FormPost      bool              `json:"form_post,omitempty"`
}

// Response is the captured outbound side.
type Response struct {
	Status        int               `json:"status"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string            `json:"body,omitempty"`
	BodySize      int               `json:"body_size"`
	BodyTruncated bool              `json:"body_truncated,omitempty"`
}

// Marshal encodes the exchange as the JSON event published by broker sinks.
func (e *Exchange) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Fields flattens the exchange into structured log fields.
func (e *Exchange) Fields() logger.Fields {
	fields := logger.Fields{
		"transaction_id":     e.TransactionID,
		"http.method":        e.Request.Method,
		"http.uri":           e.Request.URI,
		"http.status_code":   e.Response.Status,
		"duration_ms":        float64(e.Duration.Microseconds()) / 1000,
		"request.body_size":  e.Request.BodySize,
		"response.body_size": e.Response.BodySize,
	}

	optional := map[string]string{
		"application_id": e.ApplicationID,
		"service":        e.Service,
		"http.route":     e.Request.Route,
		"client_ip":      e.Request.ClientIP,
		"request.body":   e.Request.Body,
		"response.body":  e.Response.Body,
	}
	for key, value := range optional {
		if value != "" {
			fields[key] = value
		}
	}

	if len(e.Request.Headers) > 0 {
		fields["request.headers"] = e.Request.Headers
	}
	if len(e.Response.Headers) > 0 {
		fields["response.headers"] = e.Response.Headers
	}
	if len(e.CaptureErrors) > 0 {
		fields["capture_errors"] = e.CaptureErrors
	}
	return fields
}
