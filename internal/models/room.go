package models

import (
	"slices"
	"time"
)

// ChallengeType is either a truth question or a dare.
type ChallengeType string

const (
	ChallengeTruth ChallengeType = "truth"
	ChallengeDare  ChallengeType = "dare"
)

// Valid reports whether t is one of the known challenge types.
func (t ChallengeType) Valid() bool {
	return t == ChallengeTruth || t == ChallengeDare
}

// Challenge is the single in-flight truth or dare of a room.
type Challenge struct {
	Type      ChallengeType     `json:"type"`
	Question  string            `json:"question"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Completed bool              `json:"completed"`
	Response  string            `json:"response"`
	Reactions map[string]string `json:"reactions"`
	CreatedAt int64             `json:"createdAt"`
}

// Involves reports whether identity is the author or the target of the challenge.
func (c *Challenge) Involves(identity string) bool {
	return c.From == identity || c.To == identity
}

// Pending reports whether the challenge still blocks a new one.
func (c *Challenge) Pending() bool {
	return c != nil && !c.Completed
}

// ChatMessage is one entry of the room chat.
type ChatMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Room is the shared document of one game room. Every collection is always
// present (possibly empty) once Normalize has run.
type Room struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	IsPrivate        bool                `json:"isPrivate"`
	PasswordHash     string              `json:"passwordHash,omitempty"`
	Owner            string              `json:"owner"`
	Players          []string            `json:"players"`
	CurrentTurn      string              `json:"currentTurn"`
	CurrentChallenge *Challenge          `json:"currentChallenge"`
	Score            map[string]int      `json:"score"`
	KickVotes        map[string][]string `json:"kickVotes"`
	Messages         []ChatMessage       `json:"messages"`
	Typing           map[string]int64    `json:"typing"`
	Version          int64               `json:"version"`
	CreatedAt        int64               `json:"createdAt"`
	UpdatedAt        int64               `json:"updatedAt"`
}

// Normalize replaces nil collections with empty ones so the rest of the code
// never has to tell "absent" from "empty".
func (r *Room) Normalize() {
	if r.Players == nil {
		r.Players = []string{}
	}
	if r.Score == nil {
		r.Score = map[string]int{}
	}
	if r.KickVotes == nil {
		r.KickVotes = map[string][]string{}
	}
	if r.Messages == nil {
		r.Messages = []ChatMessage{}
	}
	if r.Typing == nil {
		r.Typing = map[string]int64{}
	}
	if r.CurrentChallenge != nil && r.CurrentChallenge.Reactions == nil {
		r.CurrentChallenge.Reactions = map[string]string{}
	}
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	out := r
	out.Players = slices.Clone(r.Players)
	out.Messages = slices.Clone(r.Messages)

	out.Score = make(map[string]int, len(r.Score))
	for k, v := range r.Score {
		out.Score[k] = v
	}
	out.KickVotes = make(map[string][]string, len(r.KickVotes))
	for k, v := range r.KickVotes {
		out.KickVotes[k] = slices.Clone(v)
	}
	out.Typing = make(map[string]int64, len(r.Typing))
	for k, v := range r.Typing {
		out.Typing[k] = v
	}

	if r.CurrentChallenge != nil {
		c := *r.CurrentChallenge
		c.Reactions = make(map[string]string, len(r.CurrentChallenge.Reactions))
		for k, v := range r.CurrentChallenge.Reactions {
			c.Reactions[k] = v
		}
		out.CurrentChallenge = &c
	}

	out.Normalize()
	return out
}

// Public returns the copy of the room that is safe to hand to clients.
func (r Room) Public() Room {
	out := r.Clone()
	out.PasswordHash = ""
	return out
}

// HasPlayer reports whether identity is currently in the room.
func (r *Room) HasPlayer(identity string) bool {
	return slices.Contains(r.Players, identity)
}

// TypingPlayers lists the players whose typing signal is younger than window.
// Stale entries stay in the document; they are only ignored here.
func (r *Room) TypingPlayers(now time.Time, window time.Duration) []string {
	cutoff := now.Add(-window).UnixMilli()
	out := make([]string, 0, len(r.Typing))
	for _, p := range r.Players {
		if ts, ok := r.Typing[p]; ok && ts >= cutoff {
			out = append(out, p)
		}
	}
	return out
}
