package middleware

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/RodolfoBonis/go-capture-agent/capture"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/RodolfoBonis/go-capture-agent/sink"
	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
)

type passKey struct{}

// Pass is one exchange in flight through the filter.
type Pass struct {
	// TransactionID correlates the exchange across logs, spans and sinks.
	TransactionID string
	// ClientIP defaults to the first X-Forwarded-For hop or the remote address.
	ClientIP string

	start    time.Time
	orig     *http.Request
	r        *http.Request
	w        http.ResponseWriter
	request  *capture.RequestCapture
	response *capture.ResponseCapture

	requestBody     string
	requestCaptured bool
	captureErrs     []string
	status          int
}

// FromContext returns the exchange a handler is serving, for handlers that
// want the capture wrappers directly (for example the text Writer).
func FromContext(ctx context.Context) (*Pass, bool) {
	p, ok := ctx.Value(passKey{}).(*Pass)
	return p, ok
}

// Request returns the request to hand downstream. Its context carries the
// transaction id, and a captured non-form body is replayed from memory.
func (p *Pass) Request() *http.Request { return p.r }

// ResponseWriter returns the writer to hand downstream. Writes go through
// the response capture; optional interfaces of the original writer survive.
func (p *Pass) ResponseWriter() http.ResponseWriter { return p.w }

// RequestCapture returns the request side wrapper.
func (p *Pass) RequestCapture() *capture.RequestCapture { return p.request }

// ResponseCapture returns the response side wrapper.
func (p *Pass) ResponseCapture() *capture.ResponseCapture { return p.response }

// Begin wraps both sides of the exchange. When request body capture applies,
// the body is read here, before the handler runs.
func (f *Filter) Begin(w http.ResponseWriter, r *http.Request) *Pass {
	cfg := f.agent.Config().Capture
	log := f.agent.Logger()

	txID := r.Header.Get(capture.TransactionIDHeader)
	if txID == "" {
		txID = uuid.NewString()
	}
	if cfg.EchoTransactionID {
		w.Header().Set(capture.TransactionIDHeader, txID)
	}

	p := &Pass{
		TransactionID: txID,
		ClientIP:      clientIP(r),
		start:         time.Now(),
		orig:          r,
	}

	ctx := logger.WithTransactionID(r.Context(), txID)
	ctx = context.WithValue(ctx, passKey{}, p)
	r = r.WithContext(ctx)

	opts := []capture.Option{
		capture.WithLogger(log),
		capture.WithMaxMemory(cfg.MaxMultipartMemory),
		capture.WithContentDecoding(cfg.DecodeContentEncoding),
	}
	if cfg.ResponseBodyMaxSize > 0 {
		// One byte past the limit so the scrubber still marks the body truncated.
		opts = append(opts, capture.WithMaxDecodedSize(int64(cfg.ResponseBodyMaxSize)+1))
	}

	p.request = capture.NewRequestCapture(capture.NewHTTPRequest(r, opts...), opts...)
	if cfg.RequestBody && f.agent.Scrubber().IsAllowedContentType(r.Header.Get("Content-Type")) {
		f.captureRequestBody(p, r, cfg.MaxMultipartMemory)
	}

	p.response = capture.NewResponseCapture(ctx, capture.NewHTTPResponse(w), opts...)
	p.r = r
	p.w = wrapWriter(w, p.response)

	return p
}

func (f *Filter) captureRequestBody(p *Pass, r *http.Request, limit int64) {
	if !p.request.IsFormPost() && limit > 0 {
		if r.ContentLength > limit {
			p.captureErrs = append(p.captureErrs, errRequestTooLarge)
			return
		}
		if r.ContentLength < 0 && r.Body != nil && !boundBody(p, r, limit) {
			return
		}
	}

	content, err := p.request.Content()
	if err != nil {
		f.agent.Logger().Warning(r.Context(), "Request body capture failed", logger.Fields{"error": err.Error()})
		p.captureErrs = append(p.captureErrs, "request body: "+err.Error())
	} else {
		p.requestBody = content
		p.requestCaptured = true
	}

	// Form posts were parsed into r.Form; everything else reads the replay.
	if p.request.IsFormPost() || !p.request.Captured() {
		return
	}
	if body, err := p.request.Body(); err == nil {
		r.Body = body
		r.GetBody = p.request.Body
	}
}

const errRequestTooLarge = "request body: larger than capture limit"

// boundBody reads at most limit+1 bytes of a body of unknown length and puts
// them back in front of the rest, so downstream still reads the whole body.
// It reports whether the body fits the limit.
func boundBody(p *Pass, r *http.Request, limit int64) bool {
	head, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	r.Body = splicedBody{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}
	if err != nil {
		p.captureErrs = append(p.captureErrs, "request body: "+err.Error())
		return false
	}
	if int64(len(head)) > limit {
		p.captureErrs = append(p.captureErrs, errRequestTooLarge)
		return false
	}
	return true
}

type splicedBody struct {
	io.Reader
	io.Closer
}

// cleanup removes multipart temp files parsed on the request copy handed
// downstream. net/http only removes those of the request it created.
func (p *Pass) cleanup() {
	form := p.r.MultipartForm
	if form == nil || form == p.orig.MultipartForm {
		return
	}
	_ = form.RemoveAll()
}

// SetStatus overrides the response status reported for the exchange. Hosts
// that let a later status replace an earlier one before the body is written
// report the status actually sent.
func (p *Pass) SetStatus(code int) {
	p.status = code
}

// wrapWriter routes the writing methods of w through rc while keeping
// whichever of Hijacker, Pusher and the rest w implements.
func wrapWriter(w http.ResponseWriter, rc *capture.ResponseCapture) http.ResponseWriter {
	return httpsnoop.Wrap(w, httpsnoop.Hooks{
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return rc.Write
		},
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return rc.WriteHeader
		},
		Flush: func(httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			return rc.Flush
		},
		ReadFrom: func(httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				return io.Copy(rc, src)
			}
		},
	})
}

// Finish collects the captured exchange and sends it to the agent sink.
// ctx should carry the server span, if any; its cancellation is ignored so
// a client disconnect does not drop the exchange. Sink failures are logged
// and counted and never reach the client.
func (f *Filter) Finish(ctx context.Context, p *Pass, route string) {
	defer p.cleanup()

	ex := f.exchange(p, route)

	ctx = context.WithoutCancel(ctx)
	m := f.instruments()
	m.record(ctx, ex)

	if err := f.agent.Sink().Send(ctx, ex); err != nil {
		m.sinkFailed(ctx)
		f.agent.Logger().Warning(ctx, "Failed to deliver captured exchange", logger.Fields{
			"error": err.Error(),
		})
	}
}

func (f *Filter) exchange(p *Pass, route string) *sink.Exchange {
	cfg := f.agent.Config()
	scrubber := f.agent.Scrubber()
	r := p.r

	ex := &sink.Exchange{
		TransactionID: p.TransactionID,
		ApplicationID: cfg.ApplicationID,
		Service:       cfg.ServiceName,
		StartedAt:     p.start,
		Duration:      time.Since(p.start),
		Request: sink.Request{
			Method:   r.Method,
			URI:      scrubber.ScrubURI(r.URL.RequestURI()),
			Route:    route,
			ClientIP: p.ClientIP,
			FormPost: p.request.IsFormPost(),
		},
		Response: sink.Response{
			Status:   p.response.Status(),
			BodySize: p.response.Size(),
		},
		CaptureErrors: p.captureErrs,
	}
	if p.status != 0 {
		ex.Response.Status = p.status
	}

	if cfg.Capture.RequestHeaders {
		ex.Request.Headers = scrubber.ScrubHeaders(p.request.Headers(), cfg.Capture.AllowedRequestHeaders)
	}
	if cfg.Capture.ResponseHeaders {
		ex.Response.Headers = scrubber.ScrubHeaders(p.response.Headers(), cfg.Capture.AllowedResponseHeaders)
	}

	if p.requestCaptured {
		ex.Request.BodySize = len(p.requestBody)
		ex.Request.Body, ex.Request.BodyTruncated = scrubber.ScrubBody(
			p.requestBody, r.Header.Get("Content-Type"), cfg.Capture.RequestBodyMaxSize)
	}

	contentType := p.response.Header().Get("Content-Type")
	if cfg.Capture.ResponseBody && p.response.Size() > 0 &&
		(contentType == "" || scrubber.IsAllowedContentType(contentType)) {
		body := p.response.Content()
		switch body {
		case capture.IOExceptionContent, capture.UnsupportedEncodingContent:
			ex.CaptureErrors = append(ex.CaptureErrors, "response body: "+body)
			ex.Response.Body = body
		default:
			ex.Response.Body, ex.Response.BodyTruncated = scrubber.ScrubBody(
				body, contentType, cfg.Capture.ResponseBodyMaxSize)
		}
	}

	return ex
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
