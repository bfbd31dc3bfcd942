package hub

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/voltmatch/voltmatch-be/internal/api/domain"
	"github.com/voltmatch/voltmatch-be/internal/auth"
)

// SSEHandler streams the authenticated user's events over server-sent
// events. Electricians join the broadcast group and also receive job:new.
// The stream ends when the client disconnects.
func SSEHandler(h *Hub, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserID(c)
		electrician := auth.Role(c) == domain.RoleElectrician

		session := h.Subscribe(userID, electrician)
		defer h.Unsubscribe(session)

		logger.Info("SSE stream opened",
			slog.String("user_id", userID),
			slog.Bool("electrician", electrician),
		)

		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		clientGone := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case payload, ok := <-session.Ch:
				if !ok {
					return false
				}
				c.SSEvent("message", string(payload))
				return true
			}
		})

		logger.Info("SSE stream closed",
			slog.String("user_id", userID),
		)
	}
}
