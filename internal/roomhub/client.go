package roomhub

import "truthordare/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket, Telegram).
type Client interface {
	// GetClientID identifies this connection. One identity may hold several.
	GetClientID() string
	// GetUserID returns the display identity the client plays as.
	GetUserID() string

	// GetSendChannel returns the channel the hub pushes messages on. Only the
	// hub writes to it and only the hub closes it, through Close.
	GetSendChannel() chan<- models.ServerMessage

	// Run starts the client's pumps.
	Run()
	// Close shuts the client down after the hub has forgotten it.
	Close()
}

// Envelope is a command together with the connection it came from.
type Envelope struct {
	Client  Client
	Command models.ClientCommand
}
