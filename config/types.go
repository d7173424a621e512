package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the capture agent configuration.
type Config struct {
	// General settings
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name" validate:"required_if=Enabled true"`
	Namespace   string `json:"namespace"`
	Version     string `json:"version"`
	Environment string `json:"environment"`

	// ApplicationID tags every captured exchange with the owning application.
	ApplicationID string `json:"application_id" validate:"max=256"`

	// Export settings
	Endpoint         string        `json:"endpoint"`
	ExporterProtocol string        `json:"exporter_protocol" validate:"oneof=grpc http http/protobuf"`
	Insecure         bool          `json:"insecure"`
	Timeout          time.Duration `json:"timeout" validate:"gte=0"`
	Compression      string        `json:"compression" validate:"omitempty,oneof=gzip none"`

	Auth     AuthConfig     `json:"auth"`
	Resource ResourceConfig `json:"resource"`

	// Signal settings
	Traces  TracesConfig  `json:"traces"`
	Metrics MetricsConfig `json:"metrics"`
	Logs    LogsConfig    `json:"logs"`

	Retry RetryConfig `json:"retry"`

	// Route exclusions
	RouteExclusion RouteExclusionConfig `json:"route_exclusion"`

	// PII scrubbing
	Scrub ScrubConfig `json:"scrub"`

	// What gets captured from each exchange
	Capture CaptureConfig `json:"capture"`

	// Where captured exchanges go
	Sinks SinksConfig `json:"sinks"`
}

// AuthConfig holds authentication headers for OTLP exporters.
type AuthConfig struct {
	Headers        map[string]string `json:"headers"`
	HeadersFromEnv map[string]string `json:"headers_from_env"`
}

// ResourceConfig defines resource attributes.
type ResourceConfig struct {
	ServiceInstance       string            `json:"service_instance"`
	DeploymentEnvironment string            `json:"deployment_environment"`
	K8sPodName            string            `json:"k8s_pod_name"`
	K8sNamespace          string            `json:"k8s_namespace"`
	CustomAttributes      map[string]string `json:"custom_attributes"`
}

// TracesConfig configures tracing behavior.
type TracesConfig struct {
	Enabled      bool          `json:"enabled"`
	SamplingRate float64       `json:"sampling_rate" validate:"gte=0,lte=1"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	QueueSize    int           `json:"queue_size" validate:"gte=0"`
	BatchSize    int           `json:"batch_size" validate:"gte=0"`
}

// MetricsConfig configures metrics behavior.
type MetricsConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`

	// Histogram boundaries for capture latency, in seconds
	LatencyBoundaries []float64 `json:"latency_boundaries"`
	// Histogram boundaries for captured body sizes, in bytes
	SizeBoundaries []float64 `json:"size_boundaries"`
}

// LogsConfig configures the OTLP log pipeline.
type LogsConfig struct {
	Enabled      bool          `json:"enabled"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	BatchSize    int           `json:"batch_size" validate:"gte=0"`
}

// RetryConfig configures exporter retries.
type RetryConfig struct {
	Attempts int           `json:"attempts" validate:"gte=0"`
	Backoff  time.Duration `json:"backoff" validate:"gte=0"`
}

// RouteExclusionConfig lists routes that are never captured.
type RouteExclusionConfig struct {
	ExactPaths  []string `json:"exact_paths"`
	PrefixPaths []string `json:"prefix_paths"`
	Patterns    []string `json:"patterns"`
	Methods     []string `json:"methods"`
}

// ScrubConfig configures PII scrubbing of captured bodies and span attributes.
type ScrubConfig struct {
	Enabled           bool     `json:"enabled"`
	SensitiveKeys     []string `json:"sensitive_keys"`
	SensitivePatterns []string `json:"sensitive_patterns"`
	RedactedValue     string   `json:"redacted_value"`
}

// CaptureConfig configures request/response capture.
type CaptureConfig struct {
	RequestBody            bool     `json:"request_body"`
	ResponseBody           bool     `json:"response_body"`
	RequestHeaders         bool     `json:"request_headers"`
	ResponseHeaders        bool     `json:"response_headers"`
	AllowedRequestHeaders  []string `json:"allowed_request_headers"`
	AllowedResponseHeaders []string `json:"allowed_response_headers"`
	RequestBodyMaxSize     int      `json:"request_body_max_size" validate:"gte=0"`
	ResponseBodyMaxSize    int      `json:"response_body_max_size" validate:"gte=0"`
	// Bodies with other content types are reported empty.
	BodyAllowedContentTypes []string `json:"body_allowed_content_types"`
	SensitiveHeaders        []string `json:"sensitive_headers"`
	// DecodeContentEncoding undoes gzip/deflate/br/zstd before reporting the response body.
	DecodeContentEncoding bool  `json:"decode_content_encoding"`
	EchoTransactionID     bool  `json:"echo_transaction_id"`
	MaxMultipartMemory    int64 `json:"max_multipart_memory" validate:"gte=0"`
}

// SinksConfig selects the destinations of captured exchanges.
type SinksConfig struct {
	Log     bool            `json:"log"`
	Span    bool            `json:"span"`
	AMQP    AMQPSinkConfig  `json:"amqp"`
	Redis   RedisSinkConfig `json:"redis"`
	Timeout time.Duration   `json:"timeout" validate:"gte=0"`
}

// AMQPSinkConfig publishes exchanges to a RabbitMQ exchange.
type AMQPSinkConfig struct {
	Enabled    bool   `json:"enabled"`
	URL        string `json:"url" validate:"required_if=Enabled true,omitempty,url"`
	Exchange   string `json:"exchange"`
	RoutingKey string `json:"routing_key" validate:"required_if=Enabled true"`
}

// RedisSinkConfig publishes exchanges on a Redis pub/sub channel.
type RedisSinkConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Password string `json:"-"`
	DB       int    `json:"db" validate:"gte=0"`
	Channel  string `json:"channel" validate:"required_if=Enabled true"`
}

// ResolvedAuthHeaders returns all auth headers with env vars resolved.
func (c *Config) ResolvedAuthHeaders() map[string]string {
	headers := make(map[string]string)
	for k, v := range c.Auth.Headers {
		headers[k] = v
	}
	for k, envKey := range c.Auth.HeadersFromEnv {
		if val := os.Getenv(envKey); val != "" {
			headers[k] = val
		}
	}
	return headers
}

// Validate checks the struct tags and reports every violation in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) {
		return err
	}

	msgs := make([]string, 0, len(vErrors))
	for _, fe := range vErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	case "gte", "lte", "max":
		return fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
