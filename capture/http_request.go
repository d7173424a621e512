package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
)

// HTTPRequest is the pass-through Request backed by a *http.Request.
// Parameters come from net/http's own form parsing, run once on first use,
// so r.Form, r.PostForm and r.MultipartForm stay usable by downstream code.
// Requests other than POST only report their query parameters.
type HTTPRequest struct {
	r         *http.Request
	maxMemory int64

	parsed   bool
	params   *Params
	parseErr error
}

var _ Request = (*HTTPRequest)(nil)

// NewHTTPRequest wraps r.
func NewHTTPRequest(r *http.Request, opts ...Option) *HTTPRequest {
	o := newOptions(opts)
	return &HTTPRequest{r: r, maxMemory: o.maxMemory}
}

// Request returns the wrapped *http.Request.
func (h *HTTPRequest) Request() *http.Request {
	return h.r
}

// ParseErr returns the error of the form parse, if one ran and failed.
func (h *HTTPRequest) ParseErr() error {
	return h.parseErr
}

func (h *HTTPRequest) Context() context.Context { return h.r.Context() }
func (h *HTTPRequest) Method() string           { return h.r.Method }
func (h *HTTPRequest) ContentType() string      { return h.r.Header.Get("Content-Type") }

func (h *HTTPRequest) CharacterEncoding() string {
	return CharsetFromContentType(h.ContentType())
}

// Body returns the live request body. Closing it is left to net/http.
func (h *HTTPRequest) Body() (io.ReadCloser, error) {
	if h.r.Body == nil {
		return http.NoBody, nil
	}
	return h.r.Body, nil
}

// Reader returns the live request body decoded from the declared charset.
func (h *HTTPRequest) Reader() (*bufio.Reader, error) {
	body, err := h.Body()
	if err != nil {
		return nil, err
	}
	r, err := decodingReader(body, h.CharacterEncoding())
	if err != nil {
		return nil, err
	}
	return bufio.NewReader(r), nil
}

func (h *HTTPRequest) Parameter(name string) string {
	return h.Parameters().Get(name)
}

func (h *HTTPRequest) Parameters() *Params {
	h.parse()
	return h.params
}

func (h *HTTPRequest) ParameterNames() []string {
	return h.Parameters().Names()
}

func (h *HTTPRequest) ParameterValues(name string) []string {
	return h.Parameters().Values(name)
}

// HeaderNames returns the header keys in sorted order. Keys are reported as
// stored, which for parsed requests is the canonical form.
func (h *HTTPRequest) HeaderNames() []string {
	return sortedKeys(h.r.Header)
}

// HeaderValues looks name up exactly as given.
func (h *HTTPRequest) HeaderValues(name string) []string {
	return h.r.Header[name]
}

func (h *HTTPRequest) parse() {
	if h.parsed {
		return
	}
	h.parsed = true

	var order []string
	if h.r.URL != nil {
		order = queryOrder(h.r.URL.RawQuery)
	}

	// Only POST bodies become parameters. net/http would also parse PUT and
	// PATCH bodies, leaving nothing for Content to capture.
	if h.r.Method != http.MethodPost {
		var query url.Values
		if h.r.URL != nil {
			query, h.parseErr = url.ParseQuery(h.r.URL.RawQuery)
		}
		h.params = ParamsFromValues(query, order)
		return
	}

	var teed bytes.Buffer
	mediaType, _, _ := mime.ParseMediaType(h.ContentType())
	if mediaType == "application/x-www-form-urlencoded" && h.r.Body != nil {
		h.r.Body = teeReadCloser{Reader: io.TeeReader(h.r.Body, &teed), Closer: h.r.Body}
	}

	if mediaType == "multipart/form-data" {
		h.parseErr = h.r.ParseMultipartForm(h.maxMemory)
	} else {
		h.parseErr = h.r.ParseForm()
	}
	if errors.Is(h.parseErr, http.ErrNotMultipart) {
		h.parseErr = nil
	}

	order = append(order, queryOrder(teed.String())...)
	h.params = ParamsFromValues(h.r.Form, order)
}

type teeReadCloser struct {
	io.Reader
	io.Closer
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
