package captureagent

import (
	"fmt"

	"github.com/RodolfoBonis/go-capture-agent/provider"
)

// HealthStatus represents the overall health of the agent.
type HealthStatus struct {
	Status  string                            `json:"status"` // "ok", "degraded", "unhealthy"
	Sinks   map[string]provider.ExporterState `json:"sinks,omitempty"`
	Running bool                              `json:"running"`
	Enabled bool                              `json:"enabled"`
}

// HealthCheck reports sink delivery health. Failing sinks degrade the agent
// but never the application it observes.
func (a *Agent) HealthCheck() HealthStatus {
	if !a.config.Enabled {
		return HealthStatus{Status: "ok"}
	}

	var status string
	switch a.health.OverallStatus() {
	case provider.ExporterHealthy:
		status = "ok"
	case provider.ExporterDegraded:
		status = "degraded"
	case provider.ExporterUnhealthy:
		status = "unhealthy"
	default:
		status = "unknown"
	}

	return HealthStatus{
		Status:  status,
		Sinks:   a.health.Snapshot(),
		Running: a.IsRunning(),
		Enabled: true,
	}
}

// ReadinessCheck returns true when the agent is initialized and running.
func (a *Agent) ReadinessCheck() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized && a.running
}

// DiagnosticsInfo surfaces runtime configuration for debugging capture issues.
type DiagnosticsInfo struct {
	Enabled       bool          `json:"enabled"`
	Running       bool          `json:"running"`
	Environment   string        `json:"environment"`
	ServiceName   string        `json:"service_name"`
	ApplicationID string        `json:"application_id,omitempty"`
	Version       string        `json:"version"`
	Endpoint      string        `json:"endpoint"`
	SamplingRate  float64       `json:"sampling_rate"`
	TracerType    string        `json:"tracer_type"`
	LoggerType    string        `json:"logger_type"`
	Sinks         []string      `json:"sinks"`
	Capture       CaptureConfig `json:"capture"`
}

// Diagnostics returns runtime configuration details for debugging.
func (a *Agent) Diagnostics() DiagnosticsInfo {
	tracerType := "noop"
	if a.tracerProvider != nil {
		tracerType = fmt.Sprintf("%T", a.tracerProvider)
	}

	loggerType := "noop"
	if a.loggerProvider != nil {
		loggerType = fmt.Sprintf("%T", a.loggerProvider)
	}

	a.mu.RLock()
	sinks := make([]string, 0)
	for _, s := range a.sink.Sinks() {
		sinks = append(sinks, s.Name())
	}
	a.mu.RUnlock()

	return DiagnosticsInfo{
		Enabled:       a.config.Enabled,
		Running:       a.IsRunning(),
		Environment:   a.config.Environment,
		ServiceName:   a.config.ServiceName,
		ApplicationID: a.config.ApplicationID,
		Version:       a.config.Version,
		Endpoint:      a.config.Endpoint,
		SamplingRate:  a.config.Traces.SamplingRate,
		TracerType:    tracerType,
		LoggerType:    loggerType,
		Sinks:         sinks,
		Capture:       a.config.Capture,
	}
}
