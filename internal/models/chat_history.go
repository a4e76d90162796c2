package models

import "gorm.io/gorm"

// ChatHistory represents a saved chat message in the PostgreSQL database.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt fields.
type ChatHistory struct {
	gorm.Model

	// MessageID is the id of the entry inside the room document.
	MessageID string `gorm:"type:uuid;uniqueIndex"`
	// RoomID is the identifier of the room where the message was sent.
	RoomID string `gorm:"type:uuid;not null;index:idx_room_msg"`
	// Sender is the identity of the player who sent the message.
	Sender string `gorm:"type:text;not null;index:idx_room_msg"`
	// Content is the message text.
	Content string `gorm:"type:text;not null"`
	// SentAt is the unix millis timestamp stamped by the room.
	SentAt int64 `gorm:"not null"`
}
