package captureagent

import "errors"

var (
	ErrAlreadyInitialized = errors.New("go-capture-agent: agent already initialized")
	ErrInvalidConfig      = errors.New("go-capture-agent: invalid configuration")
	ErrShutdownTimeout    = errors.New("go-capture-agent: shutdown timed out")
	ErrMissingServiceName = errors.New("go-capture-agent: service name is required")
	ErrSinkUnavailable    = errors.New("go-capture-agent: sink could not be opened")
)
