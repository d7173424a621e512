package ginmiddleware

import (
	"net/http"

	captureagent "github.com/RodolfoBonis/go-capture-agent"
	"github.com/gin-gonic/gin"
)

// HealthHandler reports sink delivery health. Only an unhealthy agent
// answers 503; a degraded one still serves.
func HealthHandler(agent *captureagent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := agent.HealthCheck()
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}

// ReadinessHandler returns a Gin handler for the readiness probe.
func ReadinessHandler(agent *captureagent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		if agent.ReadinessCheck() {
			c.JSON(http.StatusOK, gin.H{"ready": true})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
	}
}

// DiagnosticsHandler exposes the capture configuration and active sinks.
func DiagnosticsHandler(agent *captureagent.Agent) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, agent.Diagnostics())
	}
}
