package controllers

import (
	"log/slog"

	"campus-cravings/services/notify"

	"github.com/gin-gonic/gin"
)

// HandleWebSocket subscribes the client to the order given by ?orderId=,
// if any. Clients can join more orders with join-order messages.
func HandleWebSocket(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rooms []string
		if orderID := c.Query("orderId"); orderID != "" {
			rooms = append(rooms, notify.OrderRoom(orderID))
		}
		if err := hub.Serve(c.Writer, c.Request, rooms...); err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
		}
	}
}

func HandleAdminWebSocket(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Serve(c.Writer, c.Request, notify.AdminRoom); err != nil {
			slog.Warn("admin websocket upgrade failed", "error", err)
		}
	}
}
