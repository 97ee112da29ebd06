package ginserver

import (
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayfinder/internal/infra/notify/sse"
)

type NotificationHandler struct {
	Hub *sse.Hub
}

// Stream holds the connection open and relays the user's SSE frames until
// the client goes away.
func (h NotificationHandler) Stream(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Hub == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	events, unsubscribe := h.Hub.Subscribe(user.ID)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case frame, ok := <-events:
			if !ok {
				return false
			}
			_, _ = w.Write(frame)
			return true
		}
	})
}
