package game

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/models"
)

// Result is the outcome of a successful transition.
type Result struct {
	Room models.Room
	// Deleted means the last player left and the document must be removed.
	Deleted bool
	// Unchanged means the command was a no-op and nothing should be written.
	Unchanged bool
	// Winner is the player who just reached the winning score.
	Winner string
	// Removed is the player taken out of the room by a leave or a kick.
	Removed string
	// Resolved is the challenge this transition completed.
	Resolved *models.Challenge
	Accepted bool
	// Posted is the chat entry this transition appended.
	Posted *models.ChatMessage
}

// Command is one state transition of a room.
type Command interface {
	apply(r *models.Room, now time.Time) (Result, error)
}

// Apply runs cmd against a copy of room. The input is never modified, and on
// error there is no next document.
func Apply(room models.Room, cmd Command, now time.Time) (Result, error) {
	next := room.Clone()
	res, err := cmd.apply(&next, now)
	if err != nil {
		return Result{}, err
	}
	if res.Unchanged {
		res.Room = room.Clone()
		return res, nil
	}
	next.UpdatedAt = now.UnixMilli()
	res.Room = next
	return res, nil
}

// Join adds Identity to the room.
type Join struct {
	Identity string
	Password string
}

func (c Join) apply(r *models.Room, _ time.Time) (Result, error) {
	if c.Identity == "" {
		return Result{}, invalid("identity is required")
	}
	// Already in: a reconnect just adopts the current snapshot.
	if r.HasPlayer(c.Identity) {
		return Result{Unchanged: true}, nil
	}
	if r.IsPrivate && !passwordMatches(*r, c.Password) {
		return Result{}, &AuthError{RoomID: r.ID}
	}
	r.Players = append(r.Players, c.Identity)
	r.Score[c.Identity] = 0
	return Result{}, nil
}

// Leave removes Identity from the room.
type Leave struct {
	Identity string
}

func (c Leave) apply(r *models.Room, _ time.Time) (Result, error) {
	if !r.HasPlayer(c.Identity) {
		return Result{}, invalid("%s is not in this room", c.Identity)
	}
	deleted := removePlayer(r, c.Identity)
	return Result{Deleted: deleted, Removed: c.Identity}, nil
}

// removePlayer applies every effect of a player going away and reports
// whether the room is now empty.
func removePlayer(r *models.Room, identity string) bool {
	idx := slices.Index(r.Players, identity)
	if idx < 0 {
		return len(r.Players) == 0
	}
	r.Players = slices.Delete(r.Players, idx, idx+1)
	delete(r.Score, identity)
	delete(r.Typing, identity)
	delete(r.KickVotes, identity)
	for target, voters := range r.KickVotes {
		voters = slices.DeleteFunc(voters, func(v string) bool { return v == identity })
		if len(voters) == 0 {
			delete(r.KickVotes, target)
			continue
		}
		r.KickVotes[target] = voters
	}

	if len(r.Players) == 0 {
		return true
	}

	if r.Owner == identity {
		r.Owner = r.Players[0]
	}
	// The player who slid into the leaver's slot takes the turn.
	if r.CurrentTurn == identity {
		r.CurrentTurn = r.Players[idx%len(r.Players)]
	}
	if r.CurrentChallenge.Pending() && r.CurrentChallenge.Involves(identity) {
		r.CurrentChallenge = nil
	}
	return false
}

// SendChallenge issues a truth or dare from From to To.
type SendChallenge struct {
	From     string
	To       string
	Type     models.ChallengeType
	Question string
}

func (c SendChallenge) apply(r *models.Room, now time.Time) (Result, error) {
	question := strings.TrimSpace(c.Question)
	switch {
	case question == "":
		return Result{}, invalid("challenge text is required")
	case !c.Type.Valid():
		return Result{}, invalid("unknown challenge type %q", c.Type)
	case !r.HasPlayer(c.From):
		return Result{}, invalid("%s is not in this room", c.From)
	case r.CurrentTurn != c.From:
		return Result{}, invalid("it is %s's turn", r.CurrentTurn)
	case r.CurrentChallenge.Pending():
		return Result{}, invalid("a challenge is already in progress")
	case c.To == c.From:
		return Result{}, invalid("you cannot challenge yourself")
	case !r.HasPlayer(c.To):
		return Result{}, invalid("%s is not in this room", c.To)
	}

	r.CurrentChallenge = &models.Challenge{
		Type:      c.Type,
		Question:  question,
		From:      c.From,
		To:        c.To,
		Reactions: map[string]string{},
		CreatedAt: now.UnixMilli(),
	}
	r.CurrentTurn = c.To
	return Result{}, nil
}

// SubmitResponse records the challenged player's answer.
type SubmitResponse struct {
	Identity string
	Text     string
}

func (c SubmitResponse) apply(r *models.Room, _ time.Time) (Result, error) {
	ch := r.CurrentChallenge
	text := strings.TrimSpace(c.Text)
	switch {
	case !ch.Pending():
		return Result{}, invalid("there is no challenge to respond to")
	case ch.To != c.Identity:
		return Result{}, invalid("only %s can respond to this challenge", ch.To)
	case ch.Response != "":
		return Result{}, invalid("a response was already submitted")
	case text == "":
		return Result{}, invalid("response text is required")
	}
	ch.Response = text
	return Result{}, nil
}

// AddReaction stores one reaction per player on the current challenge.
type AddReaction struct {
	Identity string
	Text     string
}

func (c AddReaction) apply(r *models.Room, _ time.Time) (Result, error) {
	ch := r.CurrentChallenge
	text := strings.TrimSpace(c.Text)
	switch {
	case ch == nil:
		return Result{}, invalid("there is no challenge to react to")
	case !r.HasPlayer(c.Identity):
		return Result{}, invalid("%s is not in this room", c.Identity)
	case text == "":
		return Result{}, invalid("reaction is required")
	}
	if _, ok := ch.Reactions[c.Identity]; ok {
		return Result{Unchanged: true}, nil
	}
	ch.Reactions[c.Identity] = text
	return Result{}, nil
}

// ResolveChallenge lets the challenger accept or reject the response.
type ResolveChallenge struct {
	Requester string
	Accepted  bool
}

func (c ResolveChallenge) apply(r *models.Room, _ time.Time) (Result, error) {
	ch := r.CurrentChallenge
	switch {
	case !ch.Pending():
		return Result{}, invalid("there is no challenge to resolve")
	case ch.From != c.Requester:
		return Result{}, invalid("only %s can resolve this challenge", ch.From)
	case ch.Response == "":
		return Result{}, invalid("waiting for %s to respond", ch.To)
	}

	ch.Completed = true
	res := Result{Accepted: c.Accepted}
	if c.Accepted {
		r.Score[ch.To]++
		if r.Score[ch.To] >= config.WinningScore {
			res.Winner = ch.To
			for p := range r.Score {
				r.Score[p] = 0
			}
		}
	}
	r.CurrentTurn = ch.To

	resolved := *ch
	res.Resolved = &resolved
	return res, nil
}

// VoteKick records Voter's vote against Target and removes Target once the
// room's threshold is met.
type VoteKick struct {
	Voter  string
	Target string
}

func (c VoteKick) apply(r *models.Room, _ time.Time) (Result, error) {
	switch {
	case !r.HasPlayer(c.Voter):
		return Result{}, invalid("%s is not in this room", c.Voter)
	case !r.HasPlayer(c.Target):
		return Result{}, invalid("%s is not in this room", c.Target)
	case c.Voter == c.Target:
		return Result{}, invalid("you cannot vote to kick yourself")
	case slices.Contains(r.KickVotes[c.Target], c.Voter):
		return Result{}, invalid("you already voted to kick %s", c.Target)
	}

	threshold := config.KickThreshold(len(r.Players))
	r.KickVotes[c.Target] = append(r.KickVotes[c.Target], c.Voter)
	if len(r.KickVotes[c.Target]) < threshold {
		return Result{}, nil
	}

	deleted := removePlayer(r, c.Target)
	return Result{Deleted: deleted, Removed: c.Target}, nil
}

// PostChat appends a chat entry.
type PostChat struct {
	ID     string
	Sender string
	Text   string
}

func (c PostChat) apply(r *models.Room, now time.Time) (Result, error) {
	text := strings.TrimSpace(c.Text)
	switch {
	case text == "":
		return Result{}, invalid("message is empty")
	case utf8.RuneCountInString(text) > config.MaxChatMessageLength:
		return Result{}, invalid("message is longer than %d characters", config.MaxChatMessageLength)
	case !r.HasPlayer(c.Sender):
		return Result{}, invalid("%s is not in this room", c.Sender)
	}

	msg := models.ChatMessage{
		ID:        c.ID,
		Sender:    c.Sender,
		Message:   text,
		Timestamp: now.UnixMilli(),
	}
	r.Messages = append(r.Messages, msg)
	delete(r.Typing, c.Sender)
	return Result{Posted: &msg}, nil
}

// SetTyping sets or clears the sender's typing signal.
type SetTyping struct {
	Identity string
	IsTyping bool
}

func (c SetTyping) apply(r *models.Room, now time.Time) (Result, error) {
	if !r.HasPlayer(c.Identity) {
		return Result{}, invalid("%s is not in this room", c.Identity)
	}
	if !c.IsTyping {
		if _, ok := r.Typing[c.Identity]; !ok {
			return Result{Unchanged: true}, nil
		}
		delete(r.Typing, c.Identity)
		return Result{}, nil
	}
	r.Typing[c.Identity] = now.UnixMilli()
	return Result{}, nil
}
