package capture

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/RodolfoBonis/go-capture-agent/logger"
)

const initialCaptureSize = 1024

// ResponseCapture decorates a Response and mirrors every byte written through
// its single active channel into an internal buffer. It also implements
// http.ResponseWriter, where Write goes through the byte channel.
// It is not safe for concurrent use; one exchange runs on one goroutine.
type ResponseCapture struct {
	delegate Response
	state    channelState
	tee      *teeStream
	writer   *TextWriter
	status   int

	ctx            context.Context
	log            logger.Logger
	decodeEncoding bool
	maxDecodedSize int64
}

var (
	_ Response            = (*ResponseCapture)(nil)
	_ http.ResponseWriter = (*ResponseCapture)(nil)
	_ http.Flusher        = (*ResponseCapture)(nil)
)

// NewResponseCapture wraps delegate. ctx is only used for log correlation.
func NewResponseCapture(ctx context.Context, delegate Response, opts ...Option) *ResponseCapture {
	o := newOptions(opts)
	if ctx == nil {
		ctx = context.Background()
	}
	return &ResponseCapture{
		delegate:       delegate,
		ctx:            ctx,
		log:            o.logger,
		decodeEncoding: o.decodeEncoding,
		maxDecodedSize: o.maxDecodedSize,
	}
}

// Delegate returns the wrapped response.
func (c *ResponseCapture) Delegate() Response {
	return c.delegate
}

func (c *ResponseCapture) Header() http.Header       { return c.delegate.Header() }
func (c *ResponseCapture) CharacterEncoding() string { return c.delegate.CharacterEncoding() }

// WriteHeader records the first status code and forwards every call.
func (c *ResponseCapture) WriteHeader(statusCode int) {
	if c.status == 0 {
		c.status = statusCode
	}
	c.delegate.WriteHeader(statusCode)
}

// Status returns the status code sent, or 200 when none was set explicitly.
func (c *ResponseCapture) Status() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

// Size returns the number of bytes mirrored so far.
func (c *ResponseCapture) Size() int {
	if c.tee == nil {
		return 0
	}
	return c.tee.buf.Len()
}

// OutputStream returns the tee over the delegate byte channel, creating it on
// first use. It fails once Writer has been handed out.
func (c *ResponseCapture) OutputStream() (Stream, error) {
	if err := c.state.allow(channelStream); err != nil {
		c.log.Warning(c.ctx, "Byte channel refused", logger.Fields{"bound": c.state.String()})
		return nil, err
	}
	if c.tee == nil {
		out, err := c.delegate.OutputStream()
		if err != nil {
			return nil, err
		}
		c.tee = newTeeStream(out)
	}
	c.state = channelStream
	return c.tee, nil
}

// Writer returns a text writer layered over the tee, creating it on first
// use. It fails once OutputStream has been handed out.
func (c *ResponseCapture) Writer() (*TextWriter, error) {
	if err := c.state.allow(channelWriter); err != nil {
		c.log.Warning(c.ctx, "Text channel refused", logger.Fields{"bound": c.state.String()})
		return nil, err
	}
	if c.writer == nil {
		charset := c.delegate.CharacterEncoding()
		if charset == "" {
			charset = DefaultCharset
		}
		if _, err := lookupEncoding(charset); err != nil {
			return nil, err
		}

		out, err := c.delegate.OutputStream()
		if err != nil {
			return nil, err
		}
		tee := newTeeStream(out)
		tw, err := NewTextWriter(tee, charset, true)
		if err != nil {
			return nil, err
		}
		c.tee = tee
		c.writer = tw
	}
	c.state = channelWriter
	return c.writer, nil
}

// Write sends p through the byte channel.
func (c *ResponseCapture) Write(p []byte) (int, error) {
	out, err := c.OutputStream()
	if err != nil {
		return 0, err
	}
	return out.Write(p)
}

// WriteString sends s through the byte channel.
func (c *ResponseCapture) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// FlushBuffer flushes whichever channel is active; it does nothing before
// either channel has been used.
func (c *ResponseCapture) FlushBuffer() error {
	switch c.state {
	case channelWriter:
		return c.writer.Flush()
	case channelStream:
		return c.tee.Flush()
	default:
		return nil
	}
}

// Flush implements http.Flusher. Flush errors surface on the next write.
func (c *ResponseCapture) Flush() {
	if err := c.FlushBuffer(); err != nil {
		c.log.Debug(c.ctx, "Response flush failed", logger.Fields{"error": err.Error()})
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (c *ResponseCapture) Unwrap() http.ResponseWriter {
	if u, ok := c.delegate.(interface{ ResponseWriter() http.ResponseWriter }); ok {
		return u.ResponseWriter()
	}
	return nil
}

// RawContent returns a copy of the mirrored bytes as written.
func (c *ResponseCapture) RawContent() []byte {
	if c.tee == nil {
		return nil
	}
	return bytes.Clone(c.tee.buf.Bytes())
}

// Content flushes the active channel and returns the mirrored bytes decoded
// with the response charset. It never fails: an unused response yields "",
// and capture failures yield UnsupportedEncodingContent or IOExceptionContent.
func (c *ResponseCapture) Content() string {
	if err := c.FlushBuffer(); err != nil {
		c.log.Warning(c.ctx, "Response flush failed during capture", logger.Fields{"error": err.Error()})
		return IOExceptionContent
	}
	if c.tee == nil {
		return ""
	}

	raw := c.tee.buf.Bytes()
	if c.decodeEncoding {
		if coding := c.delegate.Header().Get("Content-Encoding"); coding != "" {
			decoded, err := DecodeContentEncoding(raw, coding, c.maxDecodedSize)
			if err != nil {
				c.log.Warning(c.ctx, "Response content decoding failed", logger.Fields{
					"content_encoding": coding,
					"error":            err.Error(),
				})
				return IOExceptionContent
			}
			raw = decoded
		}
	}

	charset := c.delegate.CharacterEncoding()
	if charset == "" {
		charset = DefaultCharset
	}
	text, err := decodeString(raw, charset)
	if err != nil {
		if errors.Is(err, ErrUnsupportedCharset) {
			return UnsupportedEncodingContent
		}
		return IOExceptionContent
	}
	return text
}

// Headers returns every response header with its values joined by ','.
// Set-Cookie reports only its first value since cookies may contain commas.
func (c *ResponseCapture) Headers() map[string]string {
	h := c.delegate.Header()
	headers := make(map[string]string, len(h))
	for _, name := range sortedKeys(h) {
		if name == "" {
			continue
		}
		values := h[name]
		if strings.EqualFold(name, "Set-Cookie") {
			if len(values) > 0 {
				headers[name] = values[0]
			}
			continue
		}
		headers[name] = strings.Join(values, ",")
	}
	return headers
}

// teeStream forwards writes to the delegate stream and mirrors what it accepted.
type teeStream struct {
	out Stream
	buf bytes.Buffer
}

func newTeeStream(out Stream) *teeStream {
	t := &teeStream{out: out}
	t.buf.Grow(initialCaptureSize)
	return t
}

func (t *teeStream) Write(p []byte) (int, error) {
	n, err := t.out.Write(p)
	if n > 0 {
		t.buf.Write(p[:n])
	}
	return n, err
}

func (t *teeStream) Flush() error { return t.out.Flush() }
func (t *teeStream) Close() error { return t.out.Close() }
