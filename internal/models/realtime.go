package models

// Event types published by the room store.
const (
	EventRoomUpdated = "room_updated"
	EventRoomDeleted = "room_deleted"
)

// RoomEvent is published on every committed write to a room document.
// Room is nil for deletions.
type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Room   *Room  `json:"room,omitempty"`
	// Winner is set when the write granted the winning point.
	Winner string `json:"winner,omitempty"`
}

// Client command types (WebSocket frames and Telegram commands map onto these).
const (
	CmdListRooms        = "list_rooms"
	CmdCreateRoom       = "create_room"
	CmdDeleteRoom       = "delete_room"
	CmdJoin             = "join"
	CmdLeave            = "leave"
	CmdSendChallenge    = "send_challenge"
	CmdSubmitResponse   = "submit_response"
	CmdAddReaction      = "add_reaction"
	CmdResolveChallenge = "resolve_challenge"
	CmdVoteKick         = "vote_kick"
	CmdChat             = "chat"
	CmdTyping           = "typing"
)

// ClientCommand is what a connected client asks the hub to do.
type ClientCommand struct {
	Type          string        `json:"type"`
	RoomID        string        `json:"room_id,omitempty"`
	Name          string        `json:"name,omitempty"`
	IsPrivate     bool          `json:"is_private,omitempty"`
	Password      string        `json:"password,omitempty"`
	Target        string        `json:"target,omitempty"`
	ChallengeType ChallengeType `json:"challenge_type,omitempty"`
	Text          string        `json:"text,omitempty"`
	Accepted      bool          `json:"accepted,omitempty"`
	IsTyping      bool          `json:"is_typing,omitempty"`

	// SenderID is filled in by the transport, never trusted from the wire.
	SenderID string `json:"-"`
}

// Server message types.
const (
	MsgRooms  = "rooms"
	MsgRoom   = "room"
	MsgNotice = "notice"
	MsgError  = "error"
)

// Notice codes surfaced to a single client.
const (
	NoticeRoomDeleted = "room_deleted"
	NoticeKicked      = "kicked"
	NoticeWinner      = "winner"
	NoticeLeft        = "left"
	NoticeJoined      = "joined"
	NoticeCreated     = "created"
)

// ServerMessage is pushed to clients.
type ServerMessage struct {
	Type   string          `json:"type"`
	RoomID string          `json:"room_id,omitempty"`
	Room   *Room           `json:"room,omitempty"`
	Rooms  map[string]Room `json:"rooms,omitempty"`
	Notice string          `json:"notice,omitempty"`
	// Subject is the identity a notice is about (e.g. the winner).
	Subject string `json:"subject,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}
