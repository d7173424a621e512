package captureagent

import (
	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/RodolfoBonis/go-capture-agent/sink"
)

// Option configures the Agent.
type Option func(*Agent)

// WithConfig overrides the entire configuration.
func WithConfig(cfg *Config) Option {
	return func(a *Agent) {
		a.config = cfg
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Agent) {
		a.logger = l
	}
}

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(a *Agent) {
		a.config.ServiceName = name
	}
}

// WithServiceNamespace sets the service namespace.
func WithServiceNamespace(ns string) Option {
	return func(a *Agent) {
		a.config.Namespace = ns
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(a *Agent) {
		a.config.Version = version
	}
}

// WithApplicationID tags every captured exchange with the owning application.
func WithApplicationID(id string) Option {
	return func(a *Agent) {
		a.config.ApplicationID = id
	}
}

// WithEndpoint sets the OTLP collector endpoint.
func WithEndpoint(endpoint string) Option {
	return func(a *Agent) {
		a.config.Endpoint = endpoint
	}
}

// WithSamplingRate sets the trace sampling rate (0.0 to 1.0).
func WithSamplingRate(rate float64) Option {
	return func(a *Agent) {
		a.config.Traces.SamplingRate = rate
	}
}

// WithDisabledSignals disables specific telemetry signals.
func WithDisabledSignals(signals ...Signal) Option {
	return func(a *Agent) {
		for _, s := range signals {
			switch s {
			case SignalTraces:
				a.config.Traces.Enabled = false
			case SignalMetrics:
				a.config.Metrics.Enabled = false
			case SignalLogs:
				a.config.Logs.Enabled = false
			}
		}
	}
}

// WithRouteExclusions sets route exclusion configuration.
func WithRouteExclusions(cfg RouteExclusionConfig) Option {
	return func(a *Agent) {
		a.config.RouteExclusion = cfg
	}
}

// WithCapture replaces what gets captured from each exchange.
func WithCapture(cfg CaptureConfig) Option {
	return func(a *Agent) {
		a.config.Capture = cfg
	}
}

// WithScrub replaces the PII scrubbing rules.
func WithScrub(cfg ScrubConfig) Option {
	return func(a *Agent) {
		a.config.Scrub = cfg
	}
}

// WithSinks replaces the sink selection.
func WithSinks(cfg SinksConfig) Option {
	return func(a *Agent) {
		a.config.Sinks = cfg
	}
}

// WithSink adds a destination next to the configured ones. It is opened by
// the caller and closed by Shutdown.
func WithSink(s sink.Sink) Option {
	return func(a *Agent) {
		a.extraSinks = append(a.extraSinks, s)
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(a *Agent) {
		a.config.Environment = env
	}
}

// WithInsecure sets whether to use insecure connection.
func WithInsecure(insecure bool) Option {
	return func(a *Agent) {
		a.config.Insecure = insecure
	}
}

// WithEnabled sets whether capture is enabled.
func WithEnabled(enabled bool) Option {
	return func(a *Agent) {
		a.config.Enabled = enabled
	}
}

// WithAuthHeaders sets authentication headers for the OTLP exporter.
func WithAuthHeaders(headers map[string]string) Option {
	return func(a *Agent) {
		a.config.Auth.Headers = headers
	}
}
