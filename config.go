package captureagent

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/RodolfoBonis/go-capture-agent/config"
)

// Re-export config types so consumers can use captureagent.Config, etc.
type Config = config.Config
type AuthConfig = config.AuthConfig
type ResourceConfig = config.ResourceConfig
type TracesConfig = config.TracesConfig
type MetricsConfig = config.MetricsConfig
type LogsConfig = config.LogsConfig
type RetryConfig = config.RetryConfig
type RouteExclusionConfig = config.RouteExclusionConfig
type ScrubConfig = config.ScrubConfig
type CaptureConfig = config.CaptureConfig
type SinksConfig = config.SinksConfig
type AMQPSinkConfig = config.AMQPSinkConfig
type RedisSinkConfig = config.RedisSinkConfig

// LoadConfigFromEnv loads configuration from environment variables with smart defaults.
func LoadConfigFromEnv() *Config {
	env := getStringEnv("development", "ENV", "DEPLOYMENT_ENVIRONMENT")

	return &Config{
		Enabled:       getBoolEnv(true, "CAPTURE_ENABLED"),
		ServiceName:   getStringEnv("", "OTEL_SERVICE_NAME", "CAPTURE_SERVICE_NAME"),
		Namespace:     getStringEnv("", "OTEL_SERVICE_NAMESPACE"),
		Version:       getStringEnv("0.0.0", "OTEL_SERVICE_VERSION", "VERSION"),
		Environment:   env,
		ApplicationID: getStringEnv("", "CAPTURE_APPLICATION_ID"),

		Endpoint:         stripURLScheme(getStringEnv("localhost:4317", "OTEL_EXPORTER_OTLP_ENDPOINT")),
		ExporterProtocol: getStringEnv("grpc", "OTEL_EXPORTER_OTLP_PROTOCOL"),
		Insecure:         getBoolEnv(true, "OTEL_EXPORTER_OTLP_INSECURE"),
		Timeout:          getDurationEnv("OTEL_EXPORTER_OTLP_TIMEOUT", 10*time.Second),
		Compression:      getStringEnv("gzip", "OTEL_EXPORTER_OTLP_COMPRESSION"),

		Auth:     loadAuthConfig(),
		Resource: loadResourceConfig(env),

		Traces:  loadTracesConfig(env),
		Metrics: loadMetricsConfig(),
		Logs:    loadLogsConfig(),
		Retry: RetryConfig{
			Attempts: getIntEnv("OTEL_RETRY_ATTEMPTS", 3),
			Backoff:  getDurationEnv("OTEL_RETRY_BACKOFF", time.Second),
		},

		RouteExclusion: loadRouteExclusionConfig(),
		Scrub:          loadScrubConfig(),
		Capture:        loadCaptureConfig(),
		Sinks:          loadSinksConfig(),
	}
}

func loadAuthConfig() AuthConfig {
	cfg := AuthConfig{
		Headers:        make(map[string]string),
		HeadersFromEnv: make(map[string]string),
	}

	if headerStr := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); headerStr != "" {
		for k, v := range parseKeyValuePairs(headerStr) {
			cfg.Headers[k] = v
		}
	}

	return cfg
}

func loadResourceConfig(env string) ResourceConfig {
	return ResourceConfig{
		ServiceInstance:       getStringEnv(getHostname(), "OTEL_SERVICE_INSTANCE"),
		DeploymentEnvironment: env,
		K8sPodName:            getStringEnv("", "POD_NAME", "K8S_POD_NAME"),
		K8sNamespace:          getStringEnv("", "POD_NAMESPACE", "K8S_NAMESPACE"),
		CustomAttributes:      parseKeyValuePairs(os.Getenv("OTEL_RESOURCE_ATTRIBUTES")),
	}
}

func loadTracesConfig(env string) TracesConfig {
	return TracesConfig{
		Enabled:      getBoolEnv(true, "OTEL_TRACES_ENABLED"),
		SamplingRate: getFloat64Env("OTEL_TRACES_SAMPLER_ARG", defaultSamplingRate(env)),
		BatchTimeout: getDurationEnv("OTEL_BSP_SCHEDULE_DELAY", 5*time.Second),
		QueueSize:    getIntEnv("OTEL_BSP_MAX_QUEUE_SIZE", 2048),
		BatchSize:    getIntEnv("OTEL_BSP_MAX_EXPORT_BATCH_SIZE", 512),
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:  getBoolEnv(true, "OTEL_METRICS_ENABLED"),
		Interval: getDurationEnv("OTEL_METRIC_EXPORT_INTERVAL", 30*time.Second),
		LatencyBoundaries: getFloat64SliceEnv("CAPTURE_LATENCY_BOUNDARIES",
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0}),
		SizeBoundaries: getFloat64SliceEnv("CAPTURE_SIZE_BOUNDARIES",
			[]float64{0, 128, 512, 1024, 4096, 16384, 65536, 262144, 1048576}),
	}
}

func loadLogsConfig() LogsConfig {
	return LogsConfig{
		Enabled:      getBoolEnv(true, "OTEL_LOGS_ENABLED"),
		BatchTimeout: getDurationEnv("OTEL_BLRP_SCHEDULE_DELAY", 5*time.Second),
		BatchSize:    getIntEnv("OTEL_BLRP_MAX_EXPORT_BATCH_SIZE", 512),
	}
}

func loadRouteExclusionConfig() RouteExclusionConfig {
	return RouteExclusionConfig{
		ExactPaths: getStringSliceEnv("CAPTURE_EXCLUDED_PATHS", []string{
			"/health", "/healthz", "/health_check", "/metrics", "/ready", "/live",
		}),
		PrefixPaths: getStringSliceEnv("CAPTURE_EXCLUDED_PREFIXES", nil),
		Patterns:    getStringSliceEnv("CAPTURE_EXCLUDED_PATTERNS", nil),
		Methods:     getStringSliceEnv("CAPTURE_EXCLUDED_METHODS", []string{"OPTIONS"}),
	}
}

func loadScrubConfig() ScrubConfig {
	return ScrubConfig{
		Enabled:           getBoolEnv(false, "CAPTURE_PII_SCRUB_ENABLED"),
		SensitiveKeys:     getStringSliceEnv("CAPTURE_PII_SENSITIVE_KEYS", []string{"password", "token", "secret", "api_key", "email"}),
		SensitivePatterns: getStringSliceEnv("CAPTURE_PII_SENSITIVE_PATTERNS", nil),
		RedactedValue:     getStringEnv("[REDACTED]", "CAPTURE_PII_REDACTED_VALUE"),
	}
}

func loadCaptureConfig() CaptureConfig {
	return CaptureConfig{
		RequestBody:            getBoolEnv(true, "CAPTURE_REQUEST_BODY"),
		ResponseBody:           getBoolEnv(true, "CAPTURE_RESPONSE_BODY"),
		RequestHeaders:         getBoolEnv(true, "CAPTURE_REQUEST_HEADERS"),
		ResponseHeaders:        getBoolEnv(true, "CAPTURE_RESPONSE_HEADERS"),
		AllowedRequestHeaders:  getStringSliceEnv("CAPTURE_ALLOWED_REQUEST_HEADERS", nil),
		AllowedResponseHeaders: getStringSliceEnv("CAPTURE_ALLOWED_RESPONSE_HEADERS", nil),
		RequestBodyMaxSize:     getIntEnv("CAPTURE_REQUEST_BODY_MAX_SIZE", 16384),
		ResponseBodyMaxSize:    getIntEnv("CAPTURE_RESPONSE_BODY_MAX_SIZE", 16384),
		BodyAllowedContentTypes: getStringSliceEnv("CAPTURE_BODY_ALLOWED_CONTENT_TYPES", []string{
			"application/json", "application/xml", "text/plain", "text/xml",
			"application/x-www-form-urlencoded", "multipart/form-data",
		}),
		SensitiveHeaders: getStringSliceEnv("CAPTURE_SENSITIVE_HEADERS", []string{
			"authorization", "cookie", "set-cookie", "x-api-key", "x-auth-token",
		}),
		DecodeContentEncoding: getBoolEnv(true, "CAPTURE_DECODE_CONTENT_ENCODING"),
		EchoTransactionID:     getBoolEnv(true, "CAPTURE_ECHO_TRANSACTION_ID"),
		MaxMultipartMemory:    getInt64Env("CAPTURE_MAX_MULTIPART_MEMORY", 32<<20),
	}
}

func loadSinksConfig() SinksConfig {
	return SinksConfig{
		Log:  getBoolEnv(true, "CAPTURE_SINK_LOG"),
		Span: getBoolEnv(true, "CAPTURE_SINK_SPAN"),
		AMQP: AMQPSinkConfig{
			Enabled:    getBoolEnv(false, "CAPTURE_SINK_AMQP"),
			URL:        getStringEnv("", "CAPTURE_AMQP_URL", "AMQP_URL"),
			Exchange:   getStringEnv("", "CAPTURE_AMQP_EXCHANGE"),
			RoutingKey: getStringEnv("http.exchanges", "CAPTURE_AMQP_ROUTING_KEY"),
		},
		Redis: RedisSinkConfig{
			Enabled:  getBoolEnv(false, "CAPTURE_SINK_REDIS"),
			Addr:     getStringEnv("localhost:6379", "CAPTURE_REDIS_ADDR", "REDIS_ADDR"),
			Password: getStringEnv("", "CAPTURE_REDIS_PASSWORD", "REDIS_PASSWORD"),
			DB:       getIntEnv("CAPTURE_REDIS_DB", 0),
			Channel:  getStringEnv("http.exchanges", "CAPTURE_REDIS_CHANNEL"),
		},
		Timeout: getDurationEnv("CAPTURE_SINK_TIMEOUT", 2*time.Second),
	}
}

// --- Helper functions for env var parsing ---

// getStringEnv returns the value of the first non-empty env var, or defaultValue.
func getStringEnv(defaultValue string, keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getBoolEnv(defaultValue bool, keys ...string) bool {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value == "true" || value == "1" || value == "yes"
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("5s") or bare milliseconds ("5000").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func getFloat64SliceEnv(key string, defaultValue []float64) []float64 {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]float64, 0, len(parts))
		for _, part := range parts {
			if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
				result = append(result, f)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func defaultSamplingRate(env string) float64 {
	switch env {
	case "production":
		return 0.1
	case "staging":
		return 0.5
	default:
		return 1.0
	}
}

func getHostname() string {
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return "unknown"
}

func parseKeyValuePairs(value string) map[string]string {
	result := make(map[string]string)
	if value == "" {
		return result
	}
	for _, pair := range strings.Split(value, ",") {
		if k, v, ok := strings.Cut(pair, "="); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return result
}

func stripURLScheme(endpoint string) string {
	if endpoint == "" {
		return endpoint
	}
	if parsedURL, err := url.Parse(endpoint); err == nil && parsedURL.Host != "" {
		return parsedURL.Host
	}
	return endpoint
}
