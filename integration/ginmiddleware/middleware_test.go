package ginmiddleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	captureagent "github.com/RodolfoBonis/go-capture-agent"
	"github.com/RodolfoBonis/go-capture-agent/capture"
	"github.com/RodolfoBonis/go-capture-agent/logger"
	"github.com/RodolfoBonis/go-capture-agent/sink"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingSink struct {
	exchanges []*sink.Exchange
	err       error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, ex *sink.Exchange) error {
	s.exchanges = append(s.exchanges, ex)
	return s.err
}

func (s *recordingSink) Close(context.Context) error { return nil }

func newTestAgent(t *testing.T, enabled bool) (*captureagent.Agent, *recordingSink) {
	t.Helper()

	cfg := captureagent.LoadConfigFromEnv()
	cfg.Enabled = enabled
	cfg.ServiceName = "orders"
	cfg.Traces.Enabled = false
	cfg.Metrics.Enabled = false
	cfg.Logs.Enabled = false
	cfg.Sinks = captureagent.SinksConfig{}

	rec := &recordingSink{}
	agent := captureagent.NewAgent(
		captureagent.WithConfig(cfg),
		captureagent.WithLogger(&logger.NoopLogger{}),
		captureagent.WithSink(rec),
	)
	if err := agent.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = agent.Shutdown(context.Background()) })
	return agent, rec
}

func TestNew_CapturesExchange(t *testing.T) {
	agent, rec := newTestAgent(t, true)

	r := gin.New()
	r.Use(New(agent))
	r.POST("/orders/:id", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusCreated, gin.H{"echo": string(body)})
	})

	req := httptest.NewRequest(http.MethodPost, "/orders/7", strings.NewReader(`{"qty":2}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp["echo"] != `{"qty":2}` {
		t.Errorf("handler should see the replayed body, got %s", w.Body.String())
	}

	if len(rec.exchanges) != 1 {
		t.Fatalf("got %d exchanges, want 1", len(rec.exchanges))
	}
	ex := rec.exchanges[0]
	if ex.Request.Route != "/orders/:id" {
		t.Errorf("Route = %q", ex.Request.Route)
	}
	if ex.Request.Body != `{"qty":2}` {
		t.Errorf("request body = %q", ex.Request.Body)
	}
	if ex.Response.Status != http.StatusCreated || ex.Response.Body != w.Body.String() {
		t.Errorf("response = %d %q, client got %q", ex.Response.Status, ex.Response.Body, w.Body.String())
	}
	if w.Header().Get(capture.TransactionIDHeader) != ex.TransactionID {
		t.Error("transaction id should be echoed")
	}
	if ex.Request.ClientIP == "" {
		t.Error("client ip should come from gin")
	}
}

func TestNew_WriteStringAndStatus(t *testing.T) {
	agent, rec := newTestAgent(t, true)

	r := gin.New()
	r.Use(New(agent))
	r.GET("/text", func(c *gin.Context) {
		c.String(http.StatusTeapot, "short %s", "and stout")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/text", nil))

	if w.Code != http.StatusTeapot || w.Body.String() != "short and stout" {
		t.Errorf("client got %d %q", w.Code, w.Body.String())
	}
	ex := rec.exchanges[0]
	if ex.Response.Status != http.StatusTeapot || ex.Response.Body != "short and stout" {
		t.Errorf("captured %d %q", ex.Response.Status, ex.Response.Body)
	}
}

func TestNew_ReportsStatusActuallySent(t *testing.T) {
	agent, rec := newTestAgent(t, true)

	r := gin.New()
	r.Use(New(agent))
	r.GET("/accept", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
		c.String(http.StatusCreated, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accept", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("client status = %d, want 201", w.Code)
	}
	if got := rec.exchanges[0].Response.Status; got != w.Code {
		t.Errorf("captured status = %d, client got %d", got, w.Code)
	}
}

func TestNew_SkipsExcludedAndFiltered(t *testing.T) {
	agent, rec := newTestAgent(t, true)

	r := gin.New()
	r.Use(New(agent, WithFilter(func(req *http.Request) bool {
		return req.URL.Path != "/private"
	})))
	for _, path := range []string{"/health", "/private", "/public"} {
		r.GET(path, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	for _, path := range []string{"/health", "/private", "/public"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if len(rec.exchanges) != 1 || rec.exchanges[0].Request.URI != "/public" {
		t.Errorf("exchanges = %+v, want only /public", rec.exchanges)
	}
}

func TestNew_DisabledAgent(t *testing.T) {
	agent, rec := newTestAgent(t, false)

	r := gin.New()
	r.Use(New(agent))
	r.GET("/orders", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

	if w.Body.String() != "ok" || len(rec.exchanges) != 0 {
		t.Errorf("disabled middleware should pass through, body=%q exchanges=%d", w.Body.String(), len(rec.exchanges))
	}
}

func TestHandlers_IncludesServerSpan(t *testing.T) {
	agent, rec := newTestAgent(t, true)

	r := gin.New()
	r.Use(Handlers(agent, "orders")...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Body.String() != "pong" || len(rec.exchanges) != 1 {
		t.Errorf("body=%q exchanges=%d", w.Body.String(), len(rec.exchanges))
	}
}

func TestHealthHandlers(t *testing.T) {
	agent, _ := newTestAgent(t, true)

	r := gin.New()
	r.GET("/health", HealthHandler(agent))
	r.GET("/ready", ReadinessHandler(agent))
	r.GET("/diagnostics", DiagnosticsHandler(agent))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	for i := 0; i < 10; i++ {
		agent.SinkHealth().RecordFailure("recording", errors.New("down"))
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy sink should answer 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"unhealthy"`) {
		t.Errorf("health body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("ready = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	if !strings.Contains(w.Body.String(), `"service_name":"orders"`) || !strings.Contains(w.Body.String(), `"recording"`) {
		t.Errorf("diagnostics = %s", w.Body.String())
	}
}
