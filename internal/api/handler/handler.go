package handler

import (
	"context"
	"net/http"
	"time"

	"truthordare/backend/internal/roomhub"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler serves the HTTP API on top of the hub and the room service.
type Handler struct {
	Hub       *roomhub.ManagerService
	Rooms     *roomhub.RoomService
	Secret    []byte
	TokenTTL  time.Duration
	PublicURL string
	Log       logrus.FieldLogger
	// Ping checks the backing store for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
	Now  func() time.Time
}

func NewHandler(hub *roomhub.ManagerService, secret string, ttl time.Duration, publicURL string) *Handler {
	return &Handler{
		Hub:       hub,
		Rooms:     hub.Rooms,
		Secret:    []byte(secret),
		TokenTTL:  ttl,
		PublicURL: publicURL,
		Log:       hub.Log,
		Now:       time.Now,
	}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.POST("/session", h.CreateSession)

	auth := r.Group("/", h.RequireIdentity())
	auth.GET("/ws", h.ServeWebSocket)

	rooms := auth.Group("/rooms")
	rooms.GET("", h.ListRooms)
	rooms.POST("", h.CreateRoom)
	rooms.GET("/:id", h.GetRoom)
	rooms.DELETE("/:id", h.DeleteRoom)
	rooms.GET("/:id/messages", h.History)
	rooms.GET("/:id/qr", h.InviteQR)

	rooms.POST("/:id/join", h.roomCommand(joinCommand))
	rooms.POST("/:id/leave", h.roomCommand(leaveCommand))
	rooms.POST("/:id/challenge", h.roomCommand(challengeCommand))
	rooms.POST("/:id/response", h.roomCommand(responseCommand))
	rooms.POST("/:id/reactions", h.roomCommand(reactionCommand))
	rooms.POST("/:id/resolve", h.roomCommand(resolveCommand))
	rooms.POST("/:id/kick-votes", h.roomCommand(kickCommand))
	rooms.POST("/:id/messages", h.roomCommand(chatCommand))
	rooms.POST("/:id/typing", h.roomCommand(typingCommand))
}

func (h *Handler) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
