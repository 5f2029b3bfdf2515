package handler

import (
	"net/http"

	"pairchat/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
func (h *Handler) ServeWebSocket(c *gin.Context) {
	anonID, ok := h.authenticate(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.Log.Warn("WebSocket upgrade failed", "user_id", anonID, "error", err)
		return
	}

	client := chathub.NewWebSocketClient(uuid.New().String(), anonID, conn, h.Hub, h.SendBufferSize)

	// The hub binds the connection and starts the partner search.
	h.Hub.RegisterCh <- client
	client.Run()
}
