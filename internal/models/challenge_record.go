package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ChallengeRecord archives a resolved challenge.
type ChallengeRecord struct {
	gorm.Model

	RoomID   string        `gorm:"type:uuid;not null;index"`
	Type     ChallengeType `gorm:"type:text;not null"`
	Question string        `gorm:"type:text;not null"`
	FromID   string        `gorm:"type:text;not null"`
	ToID     string        `gorm:"type:text;not null;index"`
	Response string        `gorm:"type:text"`
	Accepted bool
	// Reactors lists who reacted, in no particular order.
	Reactors pq.StringArray `gorm:"type:text[]"`
}

// NewChallengeRecord builds the archive row for a resolved challenge.
func NewChallengeRecord(roomID string, c Challenge, accepted bool) *ChallengeRecord {
	reactors := make(pq.StringArray, 0, len(c.Reactions))
	for who := range c.Reactions {
		reactors = append(reactors, who)
	}
	return &ChallengeRecord{
		RoomID:   roomID,
		Type:     c.Type,
		Question: c.Question,
		FromID:   c.From,
		ToID:     c.To,
		Response: c.Response,
		Accepted: accepted,
		Reactors: reactors,
	}
}
