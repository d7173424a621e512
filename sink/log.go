package sink

import (
	"context"

	"github.com/RodolfoBonis/go-capture-agent/logger"
)

// LogSink writes each exchange as one structured log entry. With the OTel
// bridge enabled the entry is also exported as an OTLP log record.
type LogSink struct {
	log logger.Logger
}

// NewLogSink wraps l.
func NewLogSink(l logger.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, ex *Exchange) error {
	if ex.Response.Status >= 500 {
		s.log.Warning(ctx, "HTTP exchange captured", ex.Fields())
		return nil
	}
	s.log.Info(ctx, "HTTP exchange captured", ex.Fields())
	return nil
}

func (s *LogSink) Close(context.Context) error { return nil }
