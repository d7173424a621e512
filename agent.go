package captureagent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RodolfoBonis/go-capture-agent/internal/matcher"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/RodolfoBonis/go-capture-agent/provider"
	"github.com/RodolfoBonis/go-capture-agent/sink"
	"go.opentelemetry.io/otel"
	otellog "go.opentelemetry.io/otel/log"
	logglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Handed out before Init and for disabled signals, so callers never get nil.
var (
	noopTracerProvider trace.TracerProvider = nooptrace.NewTracerProvider()
	noopMeterProvider  metric.MeterProvider = noopmetric.NewMeterProvider()
)

// Signal represents a telemetry signal type.
type Signal int

const (
	SignalTraces Signal = iota
	SignalMetrics
	SignalLogs
)

// Agent owns everything the capture middleware needs at runtime: the
// configuration, OTel providers, the scrubber and the sinks captured
// exchanges are delivered to.
//
// Create with NewAgent(opts...), then call Init(ctx) to start.
type Agent struct {
	config *Config
	logger logger.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider

	tracers sync.Map // name -> trace.Tracer
	meters  sync.Map // name -> metric.Meter

	routeMatcher *matcher.RouteMatcher
	scrubber     *provider.HTTPScrubber
	health       *provider.ExporterHealth
	sink         *sink.Multi
	extraSinks   []sink.Sink

	mu          sync.RWMutex
	initialized bool
	running     bool
}

// NewAgent creates a new Agent with the given options.
// No I/O is performed; call Init(ctx) to start providers and sinks.
func NewAgent(opts ...Option) *Agent {
	a := &Agent{
		config: LoadConfigFromEnv(),
		health: provider.NewExporterHealth(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logger.NewLogger(a.config.Environment)
	}

	a.routeMatcher = newRouteMatcher(a.config.RouteExclusion)
	a.scrubber = provider.NewHTTPScrubber(a.config.Capture, a.config.Scrub)
	a.sink = sink.NewMulti(a.health, a.config.Sinks.Timeout)

	return a
}

func newRouteMatcher(cfg RouteExclusionConfig) *matcher.RouteMatcher {
	return matcher.NewRouteMatcher(matcher.RouteExclusionConfig{
		ExactPaths:  cfg.ExactPaths,
		PrefixPaths: cfg.PrefixPaths,
		Patterns:    cfg.Patterns,
		Methods:     cfg.Methods,
	})
}

// Init validates the configuration, starts the OTel providers and opens the
// configured sinks. A disabled agent initializes without doing either.
func (a *Agent) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return ErrAlreadyInitialized
	}

	if !a.config.Enabled {
		a.logger.Info(ctx, "HTTP capture disabled by configuration")
		a.initialized = true
		return nil
	}

	if a.config.ServiceName == "" {
		return ErrMissingServiceName
	}
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Options and callers may have changed the config since NewAgent.
	a.routeMatcher = newRouteMatcher(a.config.RouteExclusion)
	a.scrubber = provider.NewHTTPScrubber(a.config.Capture, a.config.Scrub)

	if err := a.initProviders(ctx); err != nil {
		a.shutdownProviders(ctx)
		return err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		a.shutdownProviders(ctx)
		return err
	}
	a.sink = sink.NewMulti(a.health, a.config.Sinks.Timeout, sinks...)

	a.initialized = true
	a.running = true

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	a.logger.Info(ctx, "HTTP capture agent initialized", logger.Fields{
		"service":        a.config.ServiceName,
		"version":        a.config.Version,
		"application_id": a.config.ApplicationID,
		"endpoint":       a.config.Endpoint,
		"traces":         a.config.Traces.Enabled,
		"metrics":        a.config.Metrics.Enabled,
		"logs":           a.config.Logs.Enabled,
		"sinks":          names,
	})

	return nil
}

func (a *Agent) initProviders(ctx context.Context) error {
	res, err := provider.BuildResource(ctx, a.config)
	if err != nil {
		return fmt.Errorf("failed to build resource: %w", err)
	}

	if a.config.Traces.Enabled {
		a.tracerProvider, err = provider.NewTraceProvider(ctx, a.config, res, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create trace provider: %w", err)
		}
		otel.SetTracerProvider(a.tracerProvider)
	}

	if a.config.Metrics.Enabled {
		a.meterProvider, err = provider.NewMetricProvider(ctx, a.config, res, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create metric provider: %w", err)
		}
		otel.SetMeterProvider(a.meterProvider)
	}

	if a.config.Logs.Enabled {
		a.loggerProvider, err = provider.NewLogProvider(ctx, a.config, res, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create log provider: %w", err)
		}
		logglobal.SetLoggerProvider(a.loggerProvider)

		// Captured exchanges logged by the log sink are exported as OTLP
		// records through the bridge.
		if bridgeable, ok := a.logger.(interface {
			EnableOTelBridge(otellog.LoggerProvider)
		}); ok {
			bridgeable.EnableOTelBridge(a.loggerProvider)
		}
	}

	return nil
}

func (a *Agent) buildSinks(ctx context.Context) ([]sink.Sink, error) {
	cfg := a.config.Sinks
	var sinks []sink.Sink

	if cfg.Log {
		sinks = append(sinks, sink.NewLogSink(a.logger))
	}
	if cfg.Span {
		sinks = append(sinks, sink.NewSpanSink())
	}

	if cfg.AMQP.Enabled {
		s, err := sink.DialAMQP(cfg.AMQP, a.GetTracer("go-capture-agent/sink"))
		if err != nil {
			closeSinks(ctx, sinks)
			return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
		}
		sinks = append(sinks, s)
	}

	if cfg.Redis.Enabled {
		var tp trace.TracerProvider
		if a.tracerProvider != nil {
			tp = a.tracerProvider
		}
		var mp metric.MeterProvider
		if a.meterProvider != nil {
			mp = a.meterProvider
		}
		s, err := sink.DialRedis(cfg.Redis, tp, mp)
		if err != nil {
			closeSinks(ctx, sinks)
			return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
		}
		sinks = append(sinks, s)
	}

	return append(sinks, a.extraSinks...), nil
}

func closeSinks(ctx context.Context, sinks []sink.Sink) {
	for _, s := range sinks {
		_ = s.Close(ctx)
	}
}

// Shutdown closes the sinks and then the providers, giving up after 10s.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	a.logger.Info(ctx, "Shutting down HTTP capture agent...")

	if err := a.sink.Close(shutdownCtx); err != nil {
		a.logger.Error(ctx, "Failed to close sinks", logger.Fields{"error": err.Error()})
	}

	a.shutdownProviders(shutdownCtx)
	a.running = false

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		return ErrShutdownTimeout
	}

	a.logger.Info(ctx, "HTTP capture agent shut down")
	return nil
}

func (a *Agent) shutdownProviders(ctx context.Context) {
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			a.logger.Error(ctx, "Failed to shutdown trace provider", logger.Fields{"error": err.Error()})
		}
	}

	if a.meterProvider != nil {
		if err := a.meterProvider.Shutdown(ctx); err != nil {
			a.logger.Error(ctx, "Failed to shutdown metric provider", logger.Fields{"error": err.Error()})
		}
	}

	if a.loggerProvider != nil {
		if err := a.loggerProvider.Shutdown(ctx); err != nil {
			a.logger.Error(ctx, "Failed to shutdown log provider", logger.Fields{"error": err.Error()})
		}
	}
}

// ForceFlush flushes all pending telemetry without shutting down.
func (a *Agent) ForceFlush(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.initialized {
		return nil
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("trace flush: %w", err)
		}
	}

	if a.meterProvider != nil {
		if err := a.meterProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metric flush: %w", err)
		}
	}

	if a.loggerProvider != nil {
		if err := a.loggerProvider.ForceFlush(ctx); err != nil {
			return fmt.Errorf("log flush: %w", err)
		}
	}

	return nil
}

// GetTracer returns a tracer for the given name. Never returns nil.
func (a *Agent) GetTracer(name string) trace.Tracer {
	if a.tracerProvider == nil {
		return noopTracerProvider.Tracer(name)
	}

	if cached, ok := a.tracers.Load(name); ok {
		return cached.(trace.Tracer)
	}

	tracer := a.tracerProvider.Tracer(name)
	a.tracers.Store(name, tracer)
	return tracer
}

// GetMeter returns a meter for the given name. Never returns nil.
func (a *Agent) GetMeter(name string) metric.Meter {
	if a.meterProvider == nil {
		return noopMeterProvider.Meter(name)
	}

	if cached, ok := a.meters.Load(name); ok {
		return cached.(metric.Meter)
	}

	meter := a.meterProvider.Meter(name)
	a.meters.Store(name, meter)
	return meter
}

// IsEnabled returns whether capture is enabled.
func (a *Agent) IsEnabled() bool {
	return a.config.Enabled
}

// Config returns the agent configuration.
func (a *Agent) Config() *Config {
	return a.config
}

// Logger returns the agent logger.
func (a *Agent) Logger() logger.Logger {
	return a.logger
}

// RouteMatcher returns the route exclusion matcher.
func (a *Agent) RouteMatcher() *matcher.RouteMatcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.routeMatcher
}

// Scrubber returns the redaction rules applied to captured data.
func (a *Agent) Scrubber() *provider.HTTPScrubber {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scrubber
}

// Sink returns the fan-out captured exchanges are sent to. Before Init it
// has no destinations.
func (a *Agent) Sink() sink.Sink {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sink
}

// SinkHealth returns the per-sink delivery health tracker.
func (a *Agent) SinkHealth() *provider.ExporterHealth {
	return a.health
}

// TracerProvider returns the underlying trace.TracerProvider.
// Returns a noop provider if not initialized.
func (a *Agent) TracerProvider() trace.TracerProvider {
	if a.tracerProvider == nil {
		return noopTracerProvider
	}
	return a.tracerProvider
}

// MeterProvider returns the underlying metric.MeterProvider.
// Returns a noop provider if not initialized.
func (a *Agent) MeterProvider() metric.MeterProvider {
	if a.meterProvider == nil {
		return noopMeterProvider
	}
	return a.meterProvider
}

// LoggerProvider returns the underlying sdklog.LoggerProvider.
// Returns nil if logs are disabled or not initialized.
func (a *Agent) LoggerProvider() *sdklog.LoggerProvider {
	return a.loggerProvider
}

// IsRunning returns whether the agent is currently running.
func (a *Agent) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}
