package roomhub

import "truthordare/backend/internal/models"

// Session is one client's local view of the shared state. It only ever
// replaces its snapshot wholesale with what the store published, and turns
// the difference between what it had and what it sees into notices.
type Session struct {
	Identity string
	// RoomID is the room this client is in, empty in the lobby.
	RoomID string
	// Room is the latest snapshot of RoomID.
	Room *models.Room
	// Lobby is set once the client asked for the room list; it then gets
	// every registry change pushed.
	Lobby bool
	// moving is set while a join, create or leave is in flight.
	moving bool
}

func NewSession(identity string) *Session {
	return &Session{Identity: identity}
}

// Seated reports whether the session holds a seat or is moving between rooms.
func (s *Session) Seated() bool {
	return s.RoomID != "" || s.moving
}

// Enter adopts room as the joined room. It reports false when the session
// already holds that version or a newer one.
func (s *Session) Enter(room models.Room) bool {
	if s.Room != nil && s.RoomID == room.ID && s.Room.Version >= room.Version {
		return false
	}
	s.RoomID = room.ID
	s.Room = &room
	return true
}

// Leave clears the joined room without raising any notice.
func (s *Session) Leave() {
	s.RoomID = ""
	s.Room = nil
}

// Observe projects a store event onto the session and returns what the
// client should be told.
func (s *Session) Observe(event models.RoomEvent) []models.ServerMessage {
	if s.RoomID == "" || event.RoomID != s.RoomID {
		return nil
	}

	if event.Type == models.EventRoomDeleted || event.Room == nil {
		roomID := s.RoomID
		s.Leave()
		return []models.ServerMessage{notice(roomID, models.NoticeRoomDeleted, "")}
	}

	// Events can trail the snapshot we got from our own write.
	if s.Room != nil && event.Room.Version <= s.Room.Version {
		return nil
	}

	if !event.Room.HasPlayer(s.Identity) {
		roomID := s.RoomID
		s.Leave()
		return []models.ServerMessage{notice(roomID, models.NoticeKicked, s.Identity)}
	}

	room := *event.Room
	s.Room = &room
	out := []models.ServerMessage{roomMessage(room)}
	if event.Winner != "" {
		out = append(out, notice(room.ID, models.NoticeWinner, event.Winner))
	}
	return out
}

// ObserveRegistry checks the joined room against a full room listing; a
// joined room missing from it was deleted while we were not looking.
func (s *Session) ObserveRegistry(rooms map[string]models.Room) []models.ServerMessage {
	if s.RoomID == "" {
		return nil
	}
	if _, ok := rooms[s.RoomID]; ok {
		return nil
	}
	roomID := s.RoomID
	s.Leave()
	return []models.ServerMessage{notice(roomID, models.NoticeRoomDeleted, "")}
}

func notice(roomID, code, subject string) models.ServerMessage {
	return models.ServerMessage{Type: models.MsgNotice, RoomID: roomID, Notice: code, Subject: subject}
}

func roomMessage(room models.Room) models.ServerMessage {
	return models.ServerMessage{Type: models.MsgRoom, RoomID: room.ID, Room: &room}
}

func roomsMessage(rooms map[string]models.Room) models.ServerMessage {
	return models.ServerMessage{Type: models.MsgRooms, Rooms: rooms}
}

func errorMessage(roomID string, code, text string) models.ServerMessage {
	return models.ServerMessage{Type: models.MsgError, RoomID: roomID, Code: code, Error: text}
}
