package logger

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromZap(zap.New(core)), logs
}

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"development", "production", ""} {
		l := NewLogger(env)
		if l == nil {
			t.Fatalf("NewLogger(%q) returned nil", env)
		}
		if _, ok := l.(*ZapLogger); !ok {
			t.Fatalf("NewLogger(%q) = %T, want *ZapLogger", env, l)
		}
	}
}

func TestNewFromZap_NilUsesNop(t *testing.T) {
	l := NewFromZap(nil)
	l.Info(context.Background(), "dropped")
}

func TestLogger_LevelsReachCore(t *testing.T) {
	l, logs := newObserved()
	ctx := context.Background()

	l.Debug(ctx, "debug")
	l.Info(ctx, "info", Fields{"k": "v"})
	l.Warning(ctx, "warning")
	l.Error(ctx, "error")

	if logs.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", logs.Len())
	}

	want := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range logs.All() {
		if entry.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, entry.Level, want[i])
		}
	}

	if got := logs.All()[1].ContextMap()["k"]; got != "v" {
		t.Errorf("expected field k=v, got %v", got)
	}
}

func TestLogger_InjectsTraceAndTransaction(t *testing.T) {
	l, logs := newObserved()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = WithTransactionID(ctx, "tx-42")

	l.Info(ctx, "correlated")

	fields := logs.All()[0].ContextMap()
	if fields["trace_id"] != sc.TraceID().String() {
		t.Errorf("trace_id = %v, want %s", fields["trace_id"], sc.TraceID())
	}
	if fields["span_id"] != sc.SpanID().String() {
		t.Errorf("span_id = %v, want %s", fields["span_id"], sc.SpanID())
	}
	if fields["transaction_id"] != "tx-42" {
		t.Errorf("transaction_id = %v, want tx-42", fields["transaction_id"])
	}
}

func TestLogger_NilContextDoesNotPanic(t *testing.T) {
	l, logs := newObserved()

	//nolint:staticcheck // nil context on purpose
	l.Info(nil, "message with nil context")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
}

func TestLogger_WithAddsFields(t *testing.T) {
	l, logs := newObserved()
	enriched := l.With(Fields{"service": "capture"})

	if enriched == Logger(l) {
		t.Fatal("expected With to return a new logger")
	}

	enriched.Info(context.Background(), "enriched")
	if got := logs.All()[0].ContextMap()["service"]; got != "capture" {
		t.Errorf("service = %v, want capture", got)
	}
}

func TestLogger_LogError(t *testing.T) {
	l, logs := newObserved()
	ctx := context.Background()

	l.LogError(ctx, "nothing", nil)
	if logs.Len() != 0 {
		t.Fatalf("nil error should not log, got %d entries", logs.Len())
	}

	l.LogError(ctx, "plain", errors.New("boom"))
	if got := logs.All()[0].ContextMap()["error"]; got != "boom" {
		t.Errorf("error field = %v, want boom", got)
	}

	l.LogError(ctx, "structured", &fieldsError{code: "E_CAPTURE"})
	if got := logs.All()[1].ContextMap()["code"]; got != "E_CAPTURE" {
		t.Errorf("code field = %v, want E_CAPTURE", got)
	}
}

type fieldsError struct {
	code string
}

func (e *fieldsError) Error() string { return "structured failure" }

func (e *fieldsError) ToLogFields() map[string]interface{} {
	return map[string]interface{}{"error": e.Error(), "code": e.code}
}
