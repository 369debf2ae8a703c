package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/hejz/hejz-backend/internal/requestdata"
	"github.com/hejz/hejz-backend/internal/services"
)

type NotificationHandler struct {
	stream services.NotificationStreamService
}

func NewNotificationHandler(stream services.NotificationStreamService) *NotificationHandler {
	return &NotificationHandler{stream: stream}
}

// Stream delivers the caller's notifications as server-sent events. Clients
// connect with EventSource, so auth arrives via the ?token query fallback.
func (nh *NotificationHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	ch, cancel := nh.stream.Subscribe(rd.UserID)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		}
	})
}
