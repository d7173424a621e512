package logger

import "context"

// NoopLogger discards everything.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

func (n *NoopLogger) Debug(_ context.Context, _ string, _ ...Fields)   {}
func (n *NoopLogger) Info(_ context.Context, _ string, _ ...Fields)    {}
func (n *NoopLogger) Warning(_ context.Context, _ string, _ ...Fields) {}
func (n *NoopLogger) Error(_ context.Context, _ string, _ ...Fields)   {}
func (n *NoopLogger) With(_ Fields) Logger                             { return n }
func (n *NoopLogger) LogError(_ context.Context, _ string, _ error)    {}
