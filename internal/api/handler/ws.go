package handler

import (
	"net/http"

	"truthordare/backend/internal/roomhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to PUBLIC_URL once the web client is served from a fixed origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request and hands the connection to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}

	client := roomhub.NewWebSocketClient(conn, h.Hub, identity(c))
	select {
	case h.Hub.RegisterCh <- client:
	case <-h.Hub.Done():
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	client.Run()
}
