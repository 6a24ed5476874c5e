package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StartSSE commits event-stream headers. Anything written after this must be
// an SSE event; the status can no longer change.
func StartSSE(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
}

// WriteSSE writes one event with a JSON payload and flushes it.
func WriteSSE(c *gin.Context, event string, payload any) {
	c.SSEvent(event, payload)
	c.Writer.Flush()
}
