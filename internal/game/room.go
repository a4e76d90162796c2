// Package game holds the rules of a Truth or Dare room as pure functions:
// a transition takes the current room document and returns the next one,
// or an error and no document at all. Nothing here talks to a store.
package game

import (
	"strings"
	"time"
	"unicode/utf8"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for room passwords.
var PasswordCost = bcrypt.DefaultCost

// NewRoom builds the initial document of a room created by creator.
func NewRoom(id, name string, isPrivate bool, password, creator string, now time.Time) (models.Room, error) {
	name = strings.TrimSpace(name)
	creator = strings.TrimSpace(creator)

	if name == "" {
		return models.Room{}, invalid("room name is required")
	}
	if utf8.RuneCountInString(name) < config.MinRoomNameLength {
		return models.Room{}, invalid("room name must be at least %d characters", config.MinRoomNameLength)
	}
	if creator == "" {
		return models.Room{}, invalid("creator identity is required")
	}
	if id == "" {
		return models.Room{}, invalid("room id is required")
	}

	room := models.Room{
		ID:          id,
		Name:        name,
		IsPrivate:   isPrivate,
		Owner:       creator,
		Players:     []string{creator},
		CurrentTurn: creator,
		Score:       map[string]int{creator: 0},
		CreatedAt:   now.UnixMilli(),
		UpdatedAt:   now.UnixMilli(),
	}
	if isPrivate {
		if password == "" {
			return models.Room{}, invalid("private rooms need a password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
		if err != nil {
			return models.Room{}, invalid("unusable password: %v", err)
		}
		room.PasswordHash = string(hash)
	}
	room.Normalize()
	return room, nil
}

// CanDelete reports whether requester may delete the room.
func CanDelete(room models.Room, requester string) error {
	if requester == "" || room.Owner != requester {
		return invalid("only the room owner can delete it")
	}
	return nil
}

func passwordMatches(room models.Room, password string) bool {
	if room.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) == nil
}
