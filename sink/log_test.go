package sink

import (
	"context"
	"testing"

	"github.com/RodolfoBonis/go-capture-agent/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSink_Send(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewLogSink(logger.NewFromZap(zap.New(core)))

	ctx := logger.WithTransactionID(context.Background(), "tx-1")
	if err := s.Send(ctx, sampleExchange()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	entries := logs.FilterMessage("HTTP exchange captured").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.InfoLevel {
		t.Errorf("level = %v, want info", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["transaction_id"] != "tx-1" {
		t.Errorf("transaction_id = %v", fields["transaction_id"])
	}
	if fields["http.uri"] != "/orders?id=1" {
		t.Errorf("http.uri = %v", fields["http.uri"])
	}
}

func TestLogSink_ServerErrorsWarn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := NewLogSink(logger.NewFromZap(zap.New(core)))

	ex := sampleExchange()
	ex.Response.Status = 503
	_ = s.Send(context.Background(), ex)

	if logs.Len() != 1 || logs.All()[0].Level != zapcore.WarnLevel {
		t.Errorf("5xx exchange should log at warn, got %+v", logs.All())
	}
	if s.Name() != "log" {
		t.Errorf("Name() = %q", s.Name())
	}
}
