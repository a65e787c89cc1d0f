package ws

import (
	"net/http"

	"blooddonation_backend/internal/logger"
	"blooddonation_backend/pkg/apperrors"
	"blooddonation_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newUpgrader(allowOrigin func(origin string) bool) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// не-браузерные клиенты Origin не присылают
			return origin == "" || allowOrigin == nil || allowOrigin(origin)
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

type WebSocketHandler struct {
	Manager  *WebSocketManager
	upgrader websocket.Upgrader
}

// allowOrigin == nil - принимать любой Origin
func NewWebSocketHandler(manager *WebSocketManager, allowOrigin func(origin string) bool) *WebSocketHandler {
	return &WebSocketHandler{
		Manager:  manager,
		upgrader: newUpgrader(allowOrigin),
	}
}

// ServeWS ожидает userID в gin-контексте (AuthMiddleware)
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	raw, exists := c.Get(contextkeys.UserIDKey)
	userID, ok := raw.(uint)
	if !exists || !ok || userID == 0 {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan Event, 256),
		Manager: h.Manager,
	}

	select {
	case h.Manager.register <- client:
	case <-h.Manager.done:
		conn.Close()
		return
	}

	go client.readPump()
	go client.writePump()
}
