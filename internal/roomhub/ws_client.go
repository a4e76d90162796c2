package roomhub

import (
	"encoding/json"
	"time"

	"truthordare/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WebSocketClient implements Client over a gorilla connection.
type WebSocketClient struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Send   chan models.ServerMessage
	Log    logrus.FieldLogger
}

func NewWebSocketClient(conn *websocket.Conn, hub *ManagerService, userID string) *WebSocketClient {
	id := uuid.NewString()
	return &WebSocketClient{
		ID:     id,
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Send:   make(chan models.ServerMessage, sendBuffer),
		Log:    hub.Log.WithFields(logrus.Fields{"client_id": id, "identity": userID}),
	}
}

func (c *WebSocketClient) GetClientID() string                          { return c.ID }
func (c *WebSocketClient) GetUserID() string                            { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ServerMessage { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes Send, which stops writePump and with it the connection.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.Hub.UnregisterCh <- c:
		case <-c.Hub.Done():
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.WithError(err).Warn("Unexpected websocket close")
			}
			break
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.Log.WithError(err).Debug("Ignoring malformed frame")
			continue
		}
		select {
		case c.Hub.IncomingCh <- Envelope{Client: c, Command: cmd}:
		case <-c.Hub.Done():
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				c.Log.WithError(err).Debug("Write failed")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
