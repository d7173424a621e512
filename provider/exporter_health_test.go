package provider

import (
	"errors"
	"sync"
	"testing"
)

func TestExporterHealth_Thresholds(t *testing.T) {
	tests := []struct {
		failures int
		want     ExporterStatus
	}{
		{0, ExporterHealthy},
		{2, ExporterHealthy},
		{3, ExporterDegraded},
		{9, ExporterDegraded},
		{10, ExporterUnhealthy},
		{25, ExporterUnhealthy},
	}

	for _, tt := range tests {
		h := NewExporterHealth()
		h.RecordSuccess("amqp")
		for i := 0; i < tt.failures; i++ {
			h.RecordFailure("amqp", errors.New("channel closed"))
		}
		if got := h.Status("amqp"); got != tt.want {
			t.Errorf("after %d failures Status = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestExporterHealth_SuccessResetsStreak(t *testing.T) {
	h := NewExporterHealth()
	for i := 0; i < 5; i++ {
		h.RecordFailure("redis", nil)
	}
	h.RecordSuccess("redis")

	if got := h.Status("redis"); got != ExporterHealthy {
		t.Errorf("Status = %v, want healthy", got)
	}
	if got := h.Snapshot()["redis"].ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestExporterHealth_UnknownIsHealthy(t *testing.T) {
	if got := NewExporterHealth().Status("nope"); got != ExporterHealthy {
		t.Errorf("Status = %v, want healthy", got)
	}
}

func TestExporterHealth_OverallIsWorst(t *testing.T) {
	h := NewExporterHealth()
	h.RecordSuccess("log")
	for i := 0; i < 3; i++ {
		h.RecordFailure("amqp", nil)
	}
	for i := 0; i < 10; i++ {
		h.RecordFailure("redis", nil)
	}

	if got := h.OverallStatus(); got != ExporterUnhealthy {
		t.Errorf("OverallStatus = %v, want unhealthy", got)
	}
}

func TestExporterHealth_Snapshot(t *testing.T) {
	h := NewExporterHealth()
	h.RecordSuccess("log")
	h.RecordFailure("amqp", errors.New("no route"))

	snap := h.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot has %d entries, want 2", len(snap))
	}
	amqp := snap["amqp"]
	if amqp.LastError != "no route" || amqp.ConsecutiveFailures != 1 || amqp.LastFailure.IsZero() {
		t.Errorf("unexpected amqp state: %+v", amqp)
	}
	if snap["log"].LastSuccess.IsZero() {
		t.Error("expected log LastSuccess to be set")
	}

	// Snapshot is a copy.
	amqp.ConsecutiveFailures = 99
	if h.Snapshot()["amqp"].ConsecutiveFailures != 1 {
		t.Error("Snapshot must not alias tracker state")
	}
}

func TestExporterHealth_Concurrent(t *testing.T) {
	h := NewExporterHealth()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				h.RecordFailure("span", nil)
			} else {
				h.RecordSuccess("span")
			}
			_ = h.OverallStatus()
			_ = h.Snapshot()
		}(i)
	}
	wg.Wait()
}

func TestExporterStatus_String(t *testing.T) {
	tests := map[ExporterStatus]string{
		ExporterHealthy:    "healthy",
		ExporterDegraded:   "degraded",
		ExporterUnhealthy:  "unhealthy",
		ExporterStatus(42): "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
		text, _ := status.MarshalText()
		if string(text) != want {
			t.Errorf("MarshalText() = %q, want %q", text, want)
		}
	}
}
