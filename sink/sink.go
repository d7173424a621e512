package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RodolfoBonis/go-capture-agent/provider"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("go-capture-agent: sink closed")

// Sink receives captured exchanges.
type Sink interface {
	Name() string
	Send(ctx context.Context, ex *Exchange) error
	Close(ctx context.Context) error
}

// Multi fans an exchange out to every sink in order and records the outcome
// of each send in the exporter health tracker.
type Multi struct {
	sinks   []Sink
	health  *provider.ExporterHealth
	timeout time.Duration
}

var _ Sink = (*Multi)(nil)

// NewMulti builds a fan-out. A positive timeout bounds each individual send.
// A nil health tracker gets a fresh one.
func NewMulti(health *provider.ExporterHealth, timeout time.Duration, sinks ...Sink) *Multi {
	if health == nil {
		health = provider.NewExporterHealth()
	}
	return &Multi{sinks: sinks, health: health, timeout: timeout}
}

func (m *Multi) Name() string { return "multi" }

// Sinks returns the configured sinks.
func (m *Multi) Sinks() []Sink {
	return append([]Sink(nil), m.sinks...)
}

// Send delivers ex to every sink; one failing sink does not stop the others.
// The returned error joins every failure.
func (m *Multi) Send(ctx context.Context, ex *Exchange) error {
	var errs []error
	for _, s := range m.sinks {
		if err := m.sendOne(ctx, s, ex); err != nil {
			m.health.RecordFailure(s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		m.health.RecordSuccess(s.Name())
	}
	return errors.Join(errs...)
}

func (m *Multi) sendOne(ctx context.Context, s Sink, ex *Exchange) error {
	if m.timeout <= 0 {
		return s.Send(ctx, ex)
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return s.Send(ctx, ex)
}

// Close closes every sink and joins their errors.
func (m *Multi) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
