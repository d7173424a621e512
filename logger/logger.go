package logger

import (
	"context"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields represents structured log fields.
type Fields map[string]interface{}

type contextKey string

// TransactionIDKey is the context key under which the capture middleware
// stores the exchange transaction id.
const TransactionIDKey contextKey = "transactionID"

// Logger is a structured logger that correlates entries with the active
// trace and the exchange transaction id found in ctx.
type Logger interface {
	Debug(ctx context.Context, message string, fields ...Fields)
	Info(ctx context.Context, message string, fields ...Fields)
	Warning(ctx context.Context, message string, fields ...Fields)
	Error(ctx context.Context, message string, fields ...Fields)
	With(fields Fields) Logger
	LogError(ctx context.Context, message string, err error)
}

// ZapLogger is the zap-backed Logger.
type ZapLogger struct {
	logger *zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

// NewLogger builds a logger for the given environment ("development" or
// "production"). An empty environment falls back to $ENV, then development.
// $LOG_LEVEL overrides the level.
func NewLogger(environment string) Logger {
	if environment == "" {
		environment = os.Getenv("ENV")
	}

	cfg := zap.NewDevelopmentConfig()
	if environment != "" && environment != "development" {
		cfg = zap.NewProductionConfig()
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if level, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zl, err := cfg.Build(
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		zl = zap.NewNop()
	}

	return &ZapLogger{logger: zl}
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(zl *zap.Logger) *ZapLogger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &ZapLogger{logger: zl}
}

// EnableOTelBridge tees every entry into the given OTel LoggerProvider so
// logs are exported next to traces and metrics.
func (l *ZapLogger) EnableOTelBridge(provider otellog.LoggerProvider) {
	otelCore := otelzap.NewCore("go-capture-agent", otelzap.WithLoggerProvider(provider))
	l.logger = l.logger.WithOptions(zap.WrapCore(func(existing zapcore.Core) zapcore.Core {
		return zapcore.NewTee(existing, otelCore)
	}))
}

func (l *ZapLogger) Debug(ctx context.Context, message string, fields ...Fields) {
	l.logger.Debug(message, l.zapFields(ctx, fields)...)
}

func (l *ZapLogger) Info(ctx context.Context, message string, fields ...Fields) {
	l.logger.Info(message, l.zapFields(ctx, fields)...)
}

func (l *ZapLogger) Warning(ctx context.Context, message string, fields ...Fields) {
	l.logger.Warn(message, l.zapFields(ctx, fields)...)
}

func (l *ZapLogger) Error(ctx context.Context, message string, fields ...Fields) {
	l.logger.Error(message, l.zapFields(ctx, fields)...)
}

func (l *ZapLogger) With(fields Fields) Logger {
	return &ZapLogger{logger: l.logger.With(toZap(fields)...)}
}

// LogError logs err at error level. Errors exposing ToLogFields contribute
// their own fields.
func (l *ZapLogger) LogError(ctx context.Context, message string, err error) {
	if err == nil {
		return
	}

	fields := Fields{"error": err.Error()}
	if structured, ok := err.(interface{ ToLogFields() map[string]interface{} }); ok {
		fields = structured.ToLogFields()
	}
	l.Error(ctx, message, fields)
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) zapFields(ctx context.Context, fields []Fields) []zap.Field {
	merged := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			merged["trace_id"] = sc.TraceID().String()
			merged["span_id"] = sc.SpanID().String()
		}
		if txID, ok := ctx.Value(TransactionIDKey).(string); ok && txID != "" {
			merged["transaction_id"] = txID
		}
	}

	zfs := toZap(merged)

	// otelzap reads the context from a skipped field; console output ignores it.
	if ctx != nil {
		zfs = append(zfs, zap.Field{Key: "", Type: zapcore.SkipType, Interface: ctx})
	}
	return zfs
}

func toZap(fields Fields) []zap.Field {
	zfs := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfs = append(zfs, zap.Any(k, v))
	}
	return zfs
}

// WithTransactionID stores the exchange transaction id in ctx.
func WithTransactionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TransactionIDKey, id)
}
