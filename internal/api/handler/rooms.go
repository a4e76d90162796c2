package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"truthordare/backend/internal/game"
	"truthordare/backend/internal/models"
	"truthordare/backend/internal/roomhub"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

const (
	defaultHistoryLimit = 100
	qrSize              = 256
)

// respondError maps the game error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	code := game.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case game.CodeValidation:
		status = http.StatusBadRequest
	case game.CodeAuth:
		status = http.StatusForbidden
	case game.CodeNotFound:
		status = http.StatusNotFound
	case game.CodeStore:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.ListRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

type createRoomRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	Password  string `json:"password"`
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &game.ValidationError{Reason: "invalid request body"})
		return
	}
	room, err := h.Rooms.CreateRoom(c.Request.Context(), req.Name, req.IsPrivate, req.Password, identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.Rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) DeleteRoom(c *gin.Context) {
	if err := h.Rooms.DeleteRoom(c.Request.Context(), c.Param("id"), identity(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History returns the archived chat of a room, which outlives the room itself.
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, &game.ValidationError{Reason: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	history, err := h.Rooms.History(c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": history})
}

// InviteURL is the link a QR invite points at.
func (h *Handler) InviteURL(roomID string) string {
	return h.PublicURL + "/?room=" + url.QueryEscape(roomID)
}

// InviteQR renders the invite link of an existing room as a PNG.
func (h *Handler) InviteQR(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := h.Rooms.GetRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	png, err := qrcode.Encode(h.InviteURL(roomID), qrcode.Medium, qrSize)
	if err != nil {
		h.Log.WithError(err).WithField("room_id", roomID).Error("Failed to render invite QR")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// commandRequest is the body shared by every in-room endpoint; each one
// reads only the fields it needs.
type commandRequest struct {
	Password string               `json:"password"`
	Target   string               `json:"target"`
	Type     models.ChallengeType `json:"type"`
	Text     string               `json:"text"`
	Accepted bool                 `json:"accepted"`
	IsTyping bool                 `json:"isTyping"`
}

type commandBuilder func(req commandRequest) models.ClientCommand

func joinCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdJoin, Password: req.Password}
}

func leaveCommand(commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdLeave}
}

func challengeCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdSendChallenge, Target: req.Target, ChallengeType: req.Type, Text: req.Text}
}

func responseCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdSubmitResponse, Text: req.Text}
}

func reactionCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdAddReaction, Text: req.Text}
}

func resolveCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdResolveChallenge, Accepted: req.Accepted}
}

func kickCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdVoteKick, Target: req.Target}
}

func chatCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdChat, Text: req.Text}
}

func typingCommand(req commandRequest) models.ClientCommand {
	return models.ClientCommand{Type: models.CmdTyping, IsTyping: req.IsTyping}
}

func (h *Handler) roomCommand(build commandBuilder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req commandRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, &game.ValidationError{Reason: "invalid request body"})
				return
			}
		}

		cmd := build(req)
		cmd.RoomID = c.Param("id")
		cmd.SenderID = identity(c)
		gc, err := roomhub.RoomCommand(cmd)
		if err != nil {
			respondError(c, err)
			return
		}

		res, err := h.Rooms.Execute(c.Request.Context(), cmd.RoomID, gc)
		if err != nil {
			respondError(c, err)
			return
		}

		body := gin.H{"deleted": res.Deleted}
		if !res.Deleted {
			body["room"] = res.Room
		}
		if res.Winner != "" {
			body["winner"] = res.Winner
		}
		if res.Removed != "" {
			body["removed"] = res.Removed
		}
		c.JSON(http.StatusOK, body)
	}
}
