// Package ginmiddleware captures HTTP exchanges served by Gin.
package ginmiddleware

import (
	"net/http"

	captureagent "github.com/RodolfoBonis/go-capture-agent"
	"github.com/RodolfoBonis/go-capture-agent/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// MiddlewareOption configures the Gin middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	customFilter func(*http.Request) bool
}

// WithFilter adds a custom filter function. Return false to skip capture.
func WithFilter(fn func(*http.Request) bool) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.customFilter = fn
	}
}

// New returns a Gin middleware that captures each exchange and delivers it
// to the agent sinks after the handler chain returns. The route reported is
// the registered Gin path, never the raw URL.
func New(agent *captureagent.Agent, opts ...MiddlewareOption) gin.HandlerFunc {
	if agent == nil || !agent.IsEnabled() {
		return func(c *gin.Context) { c.Next() }
	}

	mCfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(mCfg)
	}

	var filterOpts []middleware.Option
	if mCfg.customFilter != nil {
		keep := mCfg.customFilter
		filterOpts = append(filterOpts, middleware.WithSkipper(func(r *http.Request) bool {
			return !keep(r)
		}))
	}
	filter := middleware.NewFilter(agent, filterOpts...)

	return func(c *gin.Context) {
		if filter.Skip(c.Request) {
			c.Next()
			return
		}

		p := filter.Begin(c.Writer, c.Request)
		p.ClientIP = c.ClientIP()

		original := c.Writer
		c.Request = p.Request()
		c.Writer = &captureWriter{ResponseWriter: original, pass: p}
		defer func() { c.Writer = original }()

		c.Next()

		// Gin keeps the last status set before the body is written.
		p.SetStatus(original.Status())
		filter.Finish(c.Request.Context(), p, c.FullPath())
	}
}

// Handlers returns the server span middleware followed by the capture
// middleware, so the span sink has a Gin server span to enrich.
func Handlers(agent *captureagent.Agent, service string, opts ...MiddlewareOption) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		otelgin.Middleware(service, otelgin.WithFilter(func(r *http.Request) bool {
			return agent != nil && agent.IsEnabled() && !agent.RouteMatcher().ShouldSkip(r.Method, r.URL.Path)
		})),
		New(agent, opts...),
	}
}
