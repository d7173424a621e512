package provider

import (
	"sync"
	"time"
)

// ExporterStatus represents the health of one exchange exporter (a sink).
type ExporterStatus int

const (
	ExporterHealthy ExporterStatus = iota
	ExporterDegraded
	ExporterUnhealthy
)

func (s ExporterStatus) String() string {
	switch s {
	case ExporterHealthy:
		return "healthy"
	case ExporterDegraded:
		return "degraded"
	case ExporterUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in health payloads.
func (s ExporterStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ExporterState is a point-in-time view of one exporter.
type ExporterState struct {
	Status              ExporterStatus `json:"status"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	LastSuccess         time.Time      `json:"last_success,omitzero"`
	LastFailure         time.Time      `json:"last_failure,omitzero"`
	LastError           string         `json:"last_error,omitempty"`
}

// ExporterHealth tracks consecutive send failures per exporter name.
// Safe for concurrent use.
type ExporterHealth struct {
	mu                 sync.RWMutex
	states             map[string]*ExporterState
	degradedThreshold  int
	unhealthyThreshold int
}

// NewExporterHealth creates a tracker that reports degraded after 3 and
// unhealthy after 10 consecutive failures.
func NewExporterHealth() *ExporterHealth {
	return &ExporterHealth{
		states:             make(map[string]*ExporterState),
		degradedThreshold:  3,
		unhealthyThreshold: 10,
	}
}

func (h *ExporterHealth) state(name string) *ExporterState {
	st, ok := h.states[name]
	if !ok {
		st = &ExporterState{}
		h.states[name] = st
	}
	return st
}

// RecordSuccess resets the failure streak of name.
func (h *ExporterHealth) RecordSuccess(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state(name)
	st.ConsecutiveFailures = 0
	st.LastSuccess = time.Now()
}

// RecordFailure extends the failure streak of name.
func (h *ExporterHealth) RecordFailure(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := h.state(name)
	st.ConsecutiveFailures++
	st.LastFailure = time.Now()
	if err != nil {
		st.LastError = err.Error()
	}
}

func (h *ExporterHealth) statusOf(failures int) ExporterStatus {
	switch {
	case failures >= h.unhealthyThreshold:
		return ExporterUnhealthy
	case failures >= h.degradedThreshold:
		return ExporterDegraded
	default:
		return ExporterHealthy
	}
}

// Status returns the health status of name. Unknown names are healthy.
func (h *ExporterHealth) Status(name string) ExporterStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st, ok := h.states[name]
	if !ok {
		return ExporterHealthy
	}
	return h.statusOf(st.ConsecutiveFailures)
}

// OverallStatus returns the worst status across all exporters.
func (h *ExporterHealth) OverallStatus() ExporterStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	worst := ExporterHealthy
	for _, st := range h.states {
		if status := h.statusOf(st.ConsecutiveFailures); status > worst {
			worst = status
		}
	}
	return worst
}

// Snapshot returns a copy of every exporter state.
func (h *ExporterHealth) Snapshot() map[string]ExporterState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]ExporterState, len(h.states))
	for name, st := range h.states {
		cp := *st
		cp.Status = h.statusOf(st.ConsecutiveFailures)
		out[name] = cp
	}
	return out
}
