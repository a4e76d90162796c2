package game

import "truthordare/backend/internal/models"

// Phase is where a room stands in the challenge cycle.
type Phase string

const (
	PhaseLobby             Phase = "lobby"
	PhaseChallengePending  Phase = "challenge_pending"
	PhaseResponseSubmitted Phase = "response_submitted"
)

// PhaseOf derives the phase from the room's current challenge.
func PhaseOf(room models.Room) Phase {
	ch := room.CurrentChallenge
	switch {
	case !ch.Pending():
		return PhaseLobby
	case ch.Response == "":
		return PhaseChallengePending
	default:
		return PhaseResponseSubmitted
	}
}
