// Package capture wraps the two sides of an HTTP exchange so their bodies and
// headers can be captured for telemetry without changing what downstream
// handlers observe.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/RodolfoBonis/go-capture-agent/logger"
)

const methodPost = "POST"

// TransactionIDHeader is the correlation header that is dropped from the
// header set forwarded downstream by RequestCapture.AddHeader.
const TransactionIDHeader = "X-Moesif-Transaction-Id"

var formContentTypes = []string{"application/x-www-form-urlencoded", "multipart/form-data"}

// Request is the read side of an inbound request as downstream code sees it.
type Request interface {
	Context() context.Context
	Method() string
	ContentType() string
	CharacterEncoding() string
	Body() (io.ReadCloser, error)
	Reader() (*bufio.Reader, error)
	Parameter(name string) string
	Parameters() *Params
	ParameterNames() []string
	ParameterValues(name string) []string
	HeaderNames() []string
	HeaderValues(name string) []string
}

type bodyState int

const (
	bodyNotRead bodyState = iota
	bodyCaptured
)

// RequestCapture decorates a Request so its body can be read once and replayed.
// It is not safe for concurrent use; one exchange runs on one goroutine.
type RequestCapture struct {
	delegate Request
	params   *Params
	state    bodyState
	content  []byte
	log      logger.Logger
}

var _ Request = (*RequestCapture)(nil)

// NewRequestCapture wraps delegate. For a form post the parameter mapping is
// taken eagerly, which consumes the delegate body.
func NewRequestCapture(delegate Request, opts ...Option) *RequestCapture {
	o := newOptions(opts)
	c := &RequestCapture{
		delegate: delegate,
		params:   NewParams(),
		log:      o.logger,
	}

	if c.IsFormPost() {
		if params := delegate.Parameters(); params != nil {
			c.params = params
		}
		c.log.Debug(delegate.Context(), "Captured form parameters", logger.Fields{
			"method":      delegate.Method(),
			"param_count": c.params.Len(),
		})
	}

	return c
}

// Delegate returns the wrapped request.
func (c *RequestCapture) Delegate() Request {
	return c.delegate
}

// IsFormPost reports whether the request is a POST carrying URL-encoded or
// multipart form data.
func (c *RequestCapture) IsFormPost() bool {
	contentType := c.delegate.ContentType()
	if contentType == "" || !strings.EqualFold(c.delegate.Method(), methodPost) {
		return false
	}

	lower := strings.ToLower(contentType)
	for _, formType := range formContentTypes {
		if strings.Contains(lower, formType) {
			return true
		}
	}
	return false
}

// Captured reports whether Content has materialized the body.
func (c *RequestCapture) Captured() bool {
	return c.state == bodyCaptured
}

func (c *RequestCapture) Context() context.Context  { return c.delegate.Context() }
func (c *RequestCapture) Method() string            { return c.delegate.Method() }
func (c *RequestCapture) ContentType() string       { return c.delegate.ContentType() }
func (c *RequestCapture) CharacterEncoding() string { return c.delegate.CharacterEncoding() }

// Body returns the delegate body until Content has run; afterwards every call
// returns a fresh reader over the captured bytes.
func (c *RequestCapture) Body() (io.ReadCloser, error) {
	if c.state == bodyNotRead {
		return c.delegate.Body()
	}
	return io.NopCloser(bytes.NewReader(c.content)), nil
}

// Reader is Body decoded from the declared charset.
func (c *RequestCapture) Reader() (*bufio.Reader, error) {
	if c.state == bodyNotRead {
		return c.delegate.Reader()
	}

	body, err := c.Body()
	if err != nil {
		return nil, err
	}
	r, err := decodingReader(body, c.delegate.CharacterEncoding())
	if err != nil {
		return nil, err
	}
	return bufio.NewReader(r), nil
}

// Content materializes the body and returns it as whitespace-normalized text.
// The first call reads the remaining delegate body, or renders the captured
// form parameters; later calls reuse the same bytes.
func (c *RequestCapture) Content() (string, error) {
	ctx := c.delegate.Context()

	if c.state == bodyNotRead {
		raw, err := c.materialize()
		if err != nil {
			return "", err
		}
		c.content = raw
		c.state = bodyCaptured
		c.log.Debug(ctx, "Request body captured", logger.Fields{
			"bytes":     len(raw),
			"form_post": c.params.Len() > 0,
		})
	}

	charset := c.delegate.CharacterEncoding()
	if charset == "" {
		charset = DefaultCharset
	}

	text, err := decodeString(c.content, charset)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodableContent, err)
	}
	return NormalizeSpace(text), nil
}

func (c *RequestCapture) materialize() ([]byte, error) {
	if c.params.Len() > 0 {
		return []byte(c.params.Encode()), nil
	}

	body, err := c.delegate.Body()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	if body == nil {
		return []byte{}, nil
	}

	raw, err := io.ReadAll(body)
	if err != nil && !errors.Is(err, http.ErrBodyReadAfterClose) {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

// Parameter returns the first value of name.
func (c *RequestCapture) Parameter(name string) string {
	if c.params.Len() == 0 {
		return c.delegate.Parameter(name)
	}
	return c.params.Get(name)
}

// Parameters returns the parameter mapping.
func (c *RequestCapture) Parameters() *Params {
	if c.params.Len() == 0 {
		return c.delegate.Parameters()
	}
	return c.params
}

// ParameterNames returns parameter names in mapping order.
func (c *RequestCapture) ParameterNames() []string {
	if c.params.Len() == 0 {
		return c.delegate.ParameterNames()
	}
	return c.params.Names()
}

// ParameterValues returns all values of name.
func (c *RequestCapture) ParameterValues(name string) []string {
	if c.params.Len() == 0 {
		return c.delegate.ParameterValues(name)
	}
	return c.params.Values(name)
}

func (c *RequestCapture) HeaderNames() []string             { return c.delegate.HeaderNames() }
func (c *RequestCapture) HeaderValues(name string) []string { return c.delegate.HeaderValues(name) }

// Headers returns every request header with its values joined by ','.
// Names keep the case the delegate reports.
func (c *RequestCapture) Headers() map[string]string {
	names := c.delegate.HeaderNames()
	headers := make(map[string]string, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		headers[name] = strings.Join(c.delegate.HeaderValues(name), ",")
	}
	return headers
}

// AddHeader returns Headers with name set to value and the transaction
// correlation header removed.
func (c *RequestCapture) AddHeader(name, value string) map[string]string {
	headers := c.Headers()
	headers[name] = value
	for key := range headers {
		if strings.EqualFold(key, TransactionIDHeader) {
			delete(headers, key)
		}
	}
	return headers
}
