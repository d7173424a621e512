// Package middleware captures HTTP exchanges served by net/http handlers and
// hands them to the agent sinks once the handler returns.
package middleware

import (
	"net/http"
	"sync"

	captureagent "github.com/RodolfoBonis/go-capture-agent"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const scopeName = "github.com/RodolfoBonis/go-capture-agent/middleware"

// Option configures a Filter.
type Option func(*Filter)

// WithSkipper adds a predicate; requests for which it returns true are
// served without capture.
func WithSkipper(fn func(*http.Request) bool) Option {
	return func(f *Filter) {
		f.skipper = fn
	}
}

// WithRoute overrides how the low-cardinality route of a request is found.
// The default is the net/http ServeMux pattern.
func WithRoute(fn func(*http.Request) string) Option {
	return func(f *Filter) {
		f.route = fn
	}
}

// WithServerSpan makes Handler start a server span through otelhttp, so the
// span sink has a span to enrich when nothing upstream started one.
func WithServerSpan() Option {
	return func(f *Filter) {
		f.serverSpan = true
	}
}

// Filter is the capture dispatch layer: it decides which requests are
// captured, wraps both sides of the exchange and delivers the result.
type Filter struct {
	agent      *captureagent.Agent
	skipper    func(*http.Request) bool
	route      func(*http.Request) string
	serverSpan bool

	metricsOnce sync.Once
	metrics     *instruments
}

// NewFilter builds a Filter over agent. It may be built before agent.Init;
// instruments are created on the first captured request.
func NewFilter(agent *captureagent.Agent, opts ...Option) *Filter {
	f := &Filter{
		agent: agent,
		route: func(r *http.Request) string { return r.Pattern },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Agent returns the agent the filter reports to.
func (f *Filter) Agent() *captureagent.Agent {
	return f.agent
}

// Skip reports whether r is served without capture.
func (f *Filter) Skip(r *http.Request) bool {
	if f.agent == nil || !f.agent.IsEnabled() {
		return true
	}
	if f.agent.RouteMatcher().ShouldSkip(r.Method, r.URL.Path) {
		return true
	}
	return f.skipper != nil && f.skipper(r)
}

// Handler wraps next with exchange capture.
func (f *Filter) Handler(next http.Handler) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		p := f.Begin(w, r)
		defer func() {
			f.Finish(p.Request().Context(), p, f.route(p.Request()))
		}()
		next.ServeHTTP(p.ResponseWriter(), p.Request())
	})

	if !f.serverSpan || f.agent == nil {
		return h
	}
	// Global providers, so a handler built before agent.Init still records.
	return otelhttp.NewHandler(h, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return !f.Skip(r) }),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Middleware is Handler in the func(http.Handler) http.Handler shape used by
// most routers.
func (f *Filter) Middleware() func(http.Handler) http.Handler {
	return f.Handler
}
