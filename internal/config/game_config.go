package config

import "time"

const (
	// Rooms
	MinRoomNameLength = 3
	MinUsernameLength = 3

	// Scoring
	WinningScore = 15

	// Chat
	MaxChatMessageLength = 500
	TypingWindow         = 3 * time.Second

	// Store
	MaxMutationRetries = 8
)

// Kick vote thresholds, by number of players in the room at voting time.
var kickThresholds = []struct {
	maxPlayers int
	votes      int
}{
	{maxPlayers: 4, votes: 2},
	{maxPlayers: 7, votes: 3},
}

const kickVotesLargeRoom = 4

// KickThreshold returns how many distinct votes remove a player from a room
// of the given size. It never decreases as the room grows.
func KickThreshold(players int) int {
	for _, t := range kickThresholds {
		if players <= t.maxPlayers {
			return t.votes
		}
	}
	return kickVotesLargeRoom
}
