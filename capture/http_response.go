package capture

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

type channelState int

const (
	channelUnbound channelState = iota
	channelStream
	channelWriter
)

func (s channelState) String() string {
	switch s {
	case channelUnbound:
		return "unbound"
	case channelStream:
		return "stream"
	case channelWriter:
		return "writer"
	default:
		return "unknown"
	}
}

// allow reports whether the state machine may move to want. Unbound may move
// to either channel; a bound channel can only be asked for again.
func (s channelState) allow(want channelState) error {
	if s == channelUnbound || s == want {
		return nil
	}
	if s == channelWriter {
		return fmt.Errorf("%w: Writer() has already been called on this response", ErrChannelCommitted)
	}
	return fmt.Errorf("%w: OutputStream() has already been called on this response", ErrChannelCommitted)
}

// Response is the write side of an outbound response.
type Response interface {
	Header() http.Header
	WriteHeader(statusCode int)
	OutputStream() (Stream, error)
	Writer() (*TextWriter, error)
	FlushBuffer() error
	CharacterEncoding() string
}

// HTTPResponse is the pass-through Response backed by an http.ResponseWriter.
// Like a servlet container it hands out either the byte channel or the text
// channel, never both.
type HTTPResponse struct {
	w      http.ResponseWriter
	state  channelState
	stream *responseStream
	writer *TextWriter
}

var _ Response = (*HTTPResponse)(nil)

// NewHTTPResponse wraps w.
func NewHTTPResponse(w http.ResponseWriter) *HTTPResponse {
	return &HTTPResponse{w: w}
}

// ResponseWriter returns the wrapped writer.
func (h *HTTPResponse) ResponseWriter() http.ResponseWriter {
	return h.w
}

func (h *HTTPResponse) Header() http.Header        { return h.w.Header() }
func (h *HTTPResponse) WriteHeader(statusCode int) { h.w.WriteHeader(statusCode) }

func (h *HTTPResponse) CharacterEncoding() string {
	return CharsetFromContentType(h.w.Header().Get("Content-Type"))
}

func (h *HTTPResponse) OutputStream() (Stream, error) {
	if err := h.state.allow(channelStream); err != nil {
		return nil, err
	}
	if h.stream == nil {
		h.stream = &responseStream{w: h.w}
	}
	h.state = channelStream
	return h.stream, nil
}

func (h *HTTPResponse) Writer() (*TextWriter, error) {
	if err := h.state.allow(channelWriter); err != nil {
		return nil, err
	}
	if h.writer == nil {
		charset := h.CharacterEncoding()
		if charset == "" {
			charset = DefaultCharset
		}
		tw, err := NewTextWriter(&responseStream{w: h.w}, charset, true)
		if err != nil {
			return nil, err
		}
		h.writer = tw
	}
	h.state = channelWriter
	return h.writer, nil
}

// FlushBuffer flushes the active channel, or the bare writer when none is bound.
func (h *HTTPResponse) FlushBuffer() error {
	switch {
	case h.writer != nil:
		return h.writer.Flush()
	case h.stream != nil:
		return h.stream.Flush()
	default:
		return flushWriter(h.w)
	}
}

// responseStream adapts an http.ResponseWriter to Stream.
type responseStream struct {
	w http.ResponseWriter
}

func (s *responseStream) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *responseStream) Flush() error {
	return flushWriter(s.w)
}

// Close closes the writer when it supports closing; net/http writers do not.
func (s *responseStream) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func flushWriter(w http.ResponseWriter) error {
	err := http.NewResponseController(w).Flush()
	if errors.Is(err, http.ErrNotSupported) {
		return nil
	}
	return err
}
