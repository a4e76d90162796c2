package models

import "time"

// RoomRecord is the durable trace of a room's lifetime in PostgreSQL.
// The live document lives in Redis; this row outlives it.
type RoomRecord struct {
	// RoomID is the identifier of the room (UUID).
	RoomID string `gorm:"primaryKey"`
	// Name is the display name given at creation.
	Name string `gorm:"type:text;not null"`
	// Owner is the identity of the creator.
	Owner string `gorm:"type:text;not null;index"`
	// IsPrivate records whether the room was password protected.
	IsPrivate bool
	// IsActive is false once the room document has been deleted.
	IsActive bool `gorm:"index"`
	// StartedAt is the timestamp when the room was created.
	StartedAt time.Time
	// EndedAt is the timestamp when the room was deleted.
	EndedAt *time.Time
}
