package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

type WebSocketController struct {
	hub      *ws.Hub
	upgrader *websocket.Upgrader
}

func NewWebSocketController(hub *ws.Hub, allowedOrigins []string) *WebSocketController {
	return &WebSocketController{
		hub:      hub,
		upgrader: ws.NewUpgrader(allowedOrigins),
	}
}

// OrderEvents opens an order status stream. Admins receive every order's events.
// GET /api/v1/ws/orders?token=
func (ctrl *WebSocketController) OrderEvents(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := ctrl.hub.ServeWS(ctrl.upgrader, c.Writer, c.Request, userID, middleware.IsAdmin(c)); err != nil {
		// the upgrader already wrote the HTTP error
		log.Warn("Failed to upgrade to WebSocket", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	log.Info("WebSocket connection established", map[string]interface{}{
		"user_id": userID,
	})
}
