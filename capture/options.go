package capture

import "github.com/RodolfoBonis/go-capture-agent/logger"

// DefaultMaxMemory bounds the multipart form parts kept in memory while parsing.
const DefaultMaxMemory = 32 << 20

// Option configures the capture wrappers.
type Option func(*options)

type options struct {
	logger         logger.Logger
	maxMemory      int64
	decodeEncoding bool
	maxDecodedSize int64
}

func newOptions(opts []Option) options {
	o := options{
		logger:         &logger.NoopLogger{},
		maxMemory:      DefaultMaxMemory,
		maxDecodedSize: DefaultMaxDecodedSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the structured logger used as observability hook.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxMemory sets the in-memory limit used when parsing multipart forms.
func WithMaxMemory(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMemory = n
		}
	}
}

// WithContentDecoding makes ResponseCapture.Content undo the response
// Content-Encoding before decoding the charset.
func WithContentDecoding(enabled bool) Option {
	return func(o *options) {
		o.decodeEncoding = enabled
	}
}

// WithMaxDecodedSize bounds the response content kept after undoing the
// Content-Encoding. Larger bodies are cut to a prefix.
func WithMaxDecodedSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDecodedSize = n
		}
	}
}
