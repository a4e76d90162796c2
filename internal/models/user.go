package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a display identity that has been issued a session.
// Usernames are not unique: two people may pick the same display name,
// only the room enforces "not already in players".
type User struct {
	ID         string `gorm:"primaryKey" json:"id"` // UUID
	Username   string `gorm:"type:text;not null;index" json:"username"`
	TelegramID *int64 `gorm:"uniqueIndex" json:"-"`
	Language   string `gorm:"type:text;default:en" json:"-"`
	CreatedAt  time.Time
}

// BeforeCreate is a GORM hook that assigns a new UUID if ID is not yet set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
