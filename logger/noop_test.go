package logger

import (
	"context"
	"errors"
	"testing"
)

func TestNoopLogger_DiscardsEverything(t *testing.T) {
	l := &NoopLogger{}
	ctx := context.Background()

	l.Debug(ctx, "debug", Fields{"key": "value"})
	l.Info(ctx, "info")
	l.Warning(ctx, "warning")
	l.Error(ctx, "error")
	l.LogError(ctx, "failed", errors.New("test error"))
	//nolint:staticcheck
	l.Info(nil, "nil context")
}

func TestNoopLogger_WithReturnsSelf(t *testing.T) {
	l := &NoopLogger{}
	if l.With(Fields{"service": "test"}) != Logger(l) {
		t.Fatal("expected NoopLogger.With to return the same instance")
	}
	if l.With(nil) == nil {
		t.Fatal("expected non-nil logger from With(nil)")
	}
}
