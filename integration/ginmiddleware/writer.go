package ginmiddleware

import (
	"github.com/RodolfoBonis/go-capture-agent/middleware"
	"github.com/gin-gonic/gin"
)

// captureWriter sends body writes and the status through the response
// capture. Status, Size and Written still come from Gin's own writer, which
// the capture writes into.
type captureWriter struct {
	gin.ResponseWriter
	pass *middleware.Pass
}

func (w *captureWriter) WriteHeader(code int) {
	w.pass.ResponseCapture().WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	return w.pass.ResponseCapture().Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	return w.pass.ResponseCapture().WriteString(s)
}

func (w *captureWriter) Flush() {
	w.pass.ResponseCapture().Flush()
}
