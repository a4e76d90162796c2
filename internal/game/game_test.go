package game_test

import (
	"fmt"
	"testing"
	"time"

	"truthordare/backend/internal/config"
	"truthordare/backend/internal/game"
	"truthordare/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var now = time.UnixMilli(1_700_000_000_000)

func init() {
	game.PasswordCost = bcrypt.MinCost
}

func newRoom(t *testing.T, creator string, others ...string) models.Room {
	t.Helper()
	room, err := game.NewRoom("room-1", "Party", false, "", creator, now)
	require.NoError(t, err)
	for _, p := range others {
		room = apply(t, room, game.Join{Identity: p})
	}
	return room
}

func apply(t *testing.T, room models.Room, cmd game.Command) models.Room {
	t.Helper()
	res, err := game.Apply(room, cmd, now)
	require.NoError(t, err)
	return res.Room
}

func assertValidation(t *testing.T, err error) {
	t.Helper()
	var ve *game.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func assertInvariants(t *testing.T, r models.Room) {
	t.Helper()
	require.NotEmpty(t, r.Players)
	assert.Contains(t, r.Players, r.CurrentTurn, "currentTurn must be a player")
	assert.Contains(t, r.Players, r.Owner, "owner must be a player")
	assert.Len(t, r.Score, len(r.Players))
	for _, p := range r.Players {
		_, ok := r.Score[p]
		assert.True(t, ok, "score missing for %s", p)
	}
	for target := range r.KickVotes {
		assert.Contains(t, r.Players, target)
	}
}

func TestNewRoom(t *testing.T) {
	room, err := game.NewRoom("id-1", "Party", false, "", "Alice", now)

	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, room.Players)
	assert.Equal(t, "Alice", room.CurrentTurn)
	assert.Equal(t, "Alice", room.Owner)
	assert.Equal(t, map[string]int{"Alice": 0}, room.Score)
	assert.Empty(t, room.KickVotes)
	assert.Empty(t, room.Messages)
	assert.Nil(t, room.CurrentChallenge)
	assert.Equal(t, game.PhaseLobby, game.PhaseOf(room))
}

func TestNewRoom_Validation(t *testing.T) {
	tests := []struct {
		name      string
		roomName  string
		isPrivate bool
		password  string
		creator   string
	}{
		{"empty name", "", false, "", "Alice"},
		{"blank name", "   ", false, "", "Alice"},
		{"short name", "ab", false, "", "Alice"},
		{"no creator", "Party", false, "", ""},
		{"private without password", "Secret", true, "", "Alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := game.NewRoom("id", tt.roomName, tt.isPrivate, tt.password, tt.creator, now)
			assertValidation(t, err)
		})
	}
}

func TestNewRoom_PrivateStoresHashNotPassword(t *testing.T) {
	room, err := game.NewRoom("id", "Secret", true, "swordfish", "Alice", now)

	require.NoError(t, err)
	assert.True(t, room.IsPrivate)
	assert.NotEmpty(t, room.PasswordHash)
	assert.NotContains(t, room.PasswordHash, "swordfish")
}

func TestJoin_IsIdempotent(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	res, err := game.Apply(room, game.Join{Identity: "Bob"}, now)

	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, room.Players, res.Room.Players)
	assert.Equal(t, room.Score, res.Room.Score)
}

func TestJoin_KeepsTurnAndChallenge(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q?"})

	room = apply(t, room, game.Join{Identity: "Carol"})

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, room.Players)
	assert.Equal(t, 0, room.Score["Carol"])
	assert.Equal(t, "Bob", room.CurrentTurn)
	require.NotNil(t, room.CurrentChallenge)
	assert.Equal(t, "q?", room.CurrentChallenge.Question)
}

func TestJoin_PrivateRoomWrongPassword(t *testing.T) {
	room, err := game.NewRoom("id", "Secret", true, "swordfish", "Alice", now)
	require.NoError(t, err)

	_, err = game.Apply(room, game.Join{Identity: "Dana", Password: "wrong"}, now)

	var ae *game.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"Alice"}, room.Players, "players unchanged")

	res, err := game.Apply(room, game.Join{Identity: "Dana", Password: "swordfish"}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Dana"}, res.Room.Players)
}

func TestLeave_LastPlayerDeletesRoom(t *testing.T) {
	room := newRoom(t, "Alice")

	res, err := game.Apply(room, game.Leave{Identity: "Alice"}, now)

	require.NoError(t, err)
	assert.True(t, res.Deleted)
}

func TestLeave_NotAPlayer(t *testing.T) {
	room := newRoom(t, "Alice")

	_, err := game.Apply(room, game.Leave{Identity: "Zed"}, now)

	assertValidation(t, err)
}

func TestLeave_TransfersOwnershipAndTurn(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")

	res, err := game.Apply(room, game.Leave{Identity: "Alice"}, now)

	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, "Alice", res.Removed)
	assert.Equal(t, []string{"Bob", "Carol"}, res.Room.Players)
	assert.Equal(t, "Bob", res.Room.Owner)
	assert.Equal(t, "Bob", res.Room.CurrentTurn)
	assert.NotContains(t, res.Room.Score, "Alice")
	assertInvariants(t, res.Room)
}

func TestLeave_TurnKeepsIndexContinuity(t *testing.T) {
	tests := []struct {
		leaver   string
		turn     string
		wantTurn string
	}{
		{leaver: "Bob", turn: "Bob", wantTurn: "Carol"},
		{leaver: "Dave", turn: "Dave", wantTurn: "Alice"}, // wraps around
		{leaver: "Carol", turn: "Alice", wantTurn: "Alice"},
	}
	for _, tt := range tests {
		t.Run(tt.leaver, func(t *testing.T) {
			room := newRoom(t, "Alice", "Bob", "Carol", "Dave")
			room.CurrentTurn = tt.turn

			room = apply(t, room, game.Leave{Identity: tt.leaver})

			assert.Equal(t, tt.wantTurn, room.CurrentTurn)
			assertInvariants(t, room)
		})
	}
}

func TestLeave_DiscardsPendingChallengeAndVotes(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol", "Dave", "Eve")
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeDare, Question: "dance"})
	room = apply(t, room, game.VoteKick{Voter: "Bob", Target: "Carol"})
	room = apply(t, room, game.VoteKick{Voter: "Dave", Target: "Carol"})
	room = apply(t, room, game.VoteKick{Voter: "Carol", Target: "Bob"})

	room = apply(t, room, game.Leave{Identity: "Bob"})

	assert.Nil(t, room.CurrentChallenge, "challenge involving the leaver is discarded")
	assert.NotContains(t, room.KickVotes, "Bob", "leaver is no longer a target")
	assert.Equal(t, []string{"Dave"}, room.KickVotes["Carol"], "leaver's vote is withdrawn")
	assertInvariants(t, room)
	assert.Equal(t, game.PhaseLobby, game.PhaseOf(room))
}

func TestLeave_KeepsCompletedChallenge(t *testing.T) {
	room := playedRound(t, true)
	room = apply(t, room, game.Join{Identity: "Carol"})

	room = apply(t, room, game.Leave{Identity: "Alice"})

	require.NotNil(t, room.CurrentChallenge)
	assert.True(t, room.CurrentChallenge.Completed)
}

func TestSendChallenge(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "  secret?  "})

	require.NotNil(t, room.CurrentChallenge)
	assert.Equal(t, "secret?", room.CurrentChallenge.Question)
	assert.False(t, room.CurrentChallenge.Completed)
	assert.Empty(t, room.CurrentChallenge.Reactions)
	assert.Equal(t, "Bob", room.CurrentTurn)
	assert.Equal(t, game.PhaseChallengePending, game.PhaseOf(room))
}

func TestSendChallenge_Validation(t *testing.T) {
	base := newRoom(t, "Alice", "Bob", "Carol")
	pending := apply(t, base, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeDare, Question: "x"})
	// Bob has the turn now but Alice's challenge is still open.
	tests := []struct {
		name string
		room models.Room
		cmd  game.SendChallenge
	}{
		{"empty question", base, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: " "}},
		{"bad type", base, game.SendChallenge{From: "Alice", To: "Bob", Type: "maybe", Question: "q"}},
		{"self target", base, game.SendChallenge{From: "Alice", To: "Alice", Type: models.ChallengeTruth, Question: "q"}},
		{"unknown target", base, game.SendChallenge{From: "Alice", To: "Zed", Type: models.ChallengeTruth, Question: "q"}},
		{"not your turn", base, game.SendChallenge{From: "Bob", To: "Carol", Type: models.ChallengeTruth, Question: "q"}},
		{"challenge pending", pending, game.SendChallenge{From: "Bob", To: "Carol", Type: models.ChallengeTruth, Question: "q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := game.Apply(tt.room, tt.cmd, now)
			assertValidation(t, err)
		})
	}
}

func TestSubmitResponse_Validation(t *testing.T) {
	base := newRoom(t, "Alice", "Bob")
	_, err := game.Apply(base, game.SubmitResponse{Identity: "Bob", Text: "x"}, now)
	assertValidation(t, err)

	room := apply(t, base, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q"})

	_, err = game.Apply(room, game.SubmitResponse{Identity: "Alice", Text: "x"}, now)
	assertValidation(t, err)
	_, err = game.Apply(room, game.SubmitResponse{Identity: "Bob", Text: " "}, now)
	assertValidation(t, err)

	room = apply(t, room, game.SubmitResponse{Identity: "Bob", Text: "x"})
	assert.Equal(t, "Bob", room.CurrentTurn, "turn does not move on response")
	assert.False(t, room.CurrentChallenge.Completed)
	assert.Equal(t, game.PhaseResponseSubmitted, game.PhaseOf(room))

	_, err = game.Apply(room, game.SubmitResponse{Identity: "Bob", Text: "again"}, now)
	assertValidation(t, err)
}

func TestAddReaction_OncePerPlayer(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q"})

	room = apply(t, room, game.AddReaction{Identity: "Carol", Text: "😂"})
	res, err := game.Apply(room, game.AddReaction{Identity: "Carol", Text: "🔥"}, now)

	require.NoError(t, err)
	assert.True(t, res.Unchanged)
	assert.Equal(t, map[string]string{"Carol": "😂"}, res.Room.CurrentChallenge.Reactions)
}

func TestAddReaction_NoChallenge(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	_, err := game.Apply(room, game.AddReaction{Identity: "Bob", Text: "hi"}, now)

	assertValidation(t, err)
}

func TestResolveChallenge_Validation(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q"})

	_, err := game.Apply(room, game.ResolveChallenge{Requester: "Alice", Accepted: true}, now)
	assertValidation(t, err) // no response yet

	room = apply(t, room, game.SubmitResponse{Identity: "Bob", Text: "a"})
	_, err = game.Apply(room, game.ResolveChallenge{Requester: "Bob", Accepted: true}, now)
	assertValidation(t, err) // not the challenger

	room = apply(t, room, game.ResolveChallenge{Requester: "Alice", Accepted: true})
	_, err = game.Apply(room, game.ResolveChallenge{Requester: "Alice", Accepted: true}, now)
	assertValidation(t, err) // already completed
}

func TestResolveChallenge_RejectedKeepsScores(t *testing.T) {
	room := playedRound(t, false)

	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0}, room.Score)
	assert.Equal(t, "Bob", room.CurrentTurn, "responder challenges next even when rejected")
	assert.True(t, room.CurrentChallenge.Completed)
}

func TestResolveChallenge_AcceptedIncrementsOnlyResponder(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")
	room.Score["Alice"] = 4
	room.Score["Carol"] = 7
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q"})
	room = apply(t, room, game.SubmitResponse{Identity: "Bob", Text: "a"})

	res, err := game.Apply(room, game.ResolveChallenge{Requester: "Alice", Accepted: true}, now)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Alice": 4, "Bob": 1, "Carol": 7}, res.Room.Score)
	require.NotNil(t, res.Resolved)
	assert.Equal(t, "a", res.Resolved.Response)
	assert.True(t, res.Accepted)
	assert.Empty(t, res.Winner)
}

func TestResolveChallenge_WinningPointResetsScores(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")
	room.Score["Bob"] = config.WinningScore - 1
	room.Score["Carol"] = 9
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeDare, Question: "q"})
	room = apply(t, room, game.SubmitResponse{Identity: "Bob", Text: "done"})

	res, err := game.Apply(room, game.ResolveChallenge{Requester: "Alice", Accepted: true}, now)

	require.NoError(t, err)
	assert.Equal(t, "Bob", res.Winner)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0, "Carol": 0}, res.Room.Score)
	assert.Equal(t, "Bob", res.Room.CurrentTurn)
}

func TestVoteKick_SingleVoteNeverRemoves(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")

	res, err := game.Apply(room, game.VoteKick{Voter: "Alice", Target: "Bob"}, now)

	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Contains(t, res.Room.Players, "Bob")
	assert.Equal(t, []string{"Alice"}, res.Room.KickVotes["Bob"])
}

func TestVoteKick_DuplicateVote(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")
	room = apply(t, room, game.VoteKick{Voter: "Alice", Target: "Bob"})

	_, err := game.Apply(room, game.VoteKick{Voter: "Alice", Target: "Bob"}, now)

	assertValidation(t, err)
}

func TestVoteKick_Validation(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	_, err := game.Apply(room, game.VoteKick{Voter: "Alice", Target: "Alice"}, now)
	assertValidation(t, err)
	_, err = game.Apply(room, game.VoteKick{Voter: "Zed", Target: "Alice"}, now)
	assertValidation(t, err)
	_, err = game.Apply(room, game.VoteKick{Voter: "Alice", Target: "Zed"}, now)
	assertValidation(t, err)
}

func TestVoteKick_ThresholdByRoomSize(t *testing.T) {
	for _, size := range []int{3, 4, 5, 7, 8, 10} {
		t.Run(fmt.Sprintf("%d players", size), func(t *testing.T) {
			players := make([]string, size)
			for i := range players {
				players[i] = fmt.Sprintf("p%d", i)
			}
			room := newRoom(t, players[0], players[1:]...)
			target := players[size-1]
			threshold := config.KickThreshold(size)

			for i := 0; i < threshold; i++ {
				res, err := game.Apply(room, game.VoteKick{Voter: players[i], Target: target}, now)
				require.NoError(t, err)
				room = res.Room
				if i < threshold-1 {
					assert.Contains(t, room.Players, target, "removed after only %d votes", i+1)
				} else {
					assert.Equal(t, target, res.Removed)
				}
			}
			assert.NotContains(t, room.Players, target)
			assertInvariants(t, room)
		})
	}
}

func TestScenario_FivePlayerKick(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol", "Dave", "Eve")
	room.CurrentTurn = "Carol"

	room = apply(t, room, game.VoteKick{Voter: "Alice", Target: "Carol"})
	room = apply(t, room, game.VoteKick{Voter: "Bob", Target: "Carol"})
	res, err := game.Apply(room, game.VoteKick{Voter: "Dave", Target: "Carol"}, now)

	require.NoError(t, err)
	assert.Equal(t, "Carol", res.Removed)
	assert.NotContains(t, res.Room.Players, "Carol")
	assert.NotContains(t, res.Room.Score, "Carol")
	assert.NotContains(t, res.Room.KickVotes, "Carol")
	assert.Equal(t, "Dave", res.Room.CurrentTurn)
	assertInvariants(t, res.Room)
}

func TestScenario_PartyRound(t *testing.T) {
	room := playedRound(t, true)

	require.NotNil(t, room.CurrentChallenge)
	assert.Equal(t, models.ChallengeDare, room.CurrentChallenge.Type)
	assert.Equal(t, "sing a song", room.CurrentChallenge.Question)
	assert.Equal(t, "Alice", room.CurrentChallenge.From)
	assert.Equal(t, "Bob", room.CurrentChallenge.To)
	assert.True(t, room.CurrentChallenge.Completed)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 1}, room.Score)
	assert.Equal(t, "Bob", room.CurrentTurn)

	// Bob may now challenge.
	room = apply(t, room, game.SendChallenge{From: "Bob", To: "Alice", Type: models.ChallengeTruth, Question: "why?"})
	assert.Equal(t, "Alice", room.CurrentTurn)
}

func playedRound(t *testing.T, accepted bool) models.Room {
	t.Helper()
	room := newRoom(t, "Alice", "Bob")
	room = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeDare, Question: "sing a song"})
	assert.Equal(t, "Bob", room.CurrentTurn)
	room = apply(t, room, game.SubmitResponse{Identity: "Bob", Text: "la la la"})
	return apply(t, room, game.ResolveChallenge{Requester: "Alice", Accepted: accepted})
}

func TestPostChat(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")
	room = apply(t, room, game.SetTyping{Identity: "Alice", IsTyping: true})

	res, err := game.Apply(room, game.PostChat{ID: "m1", Sender: "Alice", Text: " hello "}, now)

	require.NoError(t, err)
	require.Len(t, res.Room.Messages, 1)
	assert.Equal(t, models.ChatMessage{ID: "m1", Sender: "Alice", Message: "hello", Timestamp: now.UnixMilli()}, res.Room.Messages[0])
	require.NotNil(t, res.Posted)
	assert.Equal(t, "hello", res.Posted.Message)
	assert.NotContains(t, res.Room.Typing, "Alice", "posting clears the typing signal")
}

func TestPostChat_Validation(t *testing.T) {
	room := newRoom(t, "Alice")
	long := make([]rune, config.MaxChatMessageLength+1)
	for i := range long {
		long[i] = 'x'
	}

	for _, text := range []string{"", "   ", "\n\t", string(long)} {
		_, err := game.Apply(room, game.PostChat{Sender: "Alice", Text: text}, now)
		assertValidation(t, err)
	}
	_, err := game.Apply(room, game.PostChat{Sender: "Zed", Text: "hi"}, now)
	assertValidation(t, err)
}

func TestSetTyping(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	room = apply(t, room, game.SetTyping{Identity: "Bob", IsTyping: true})
	assert.Equal(t, []string{"Bob"}, room.TypingPlayers(now, config.TypingWindow))
	assert.Empty(t, room.TypingPlayers(now.Add(config.TypingWindow+time.Millisecond), config.TypingWindow))

	room = apply(t, room, game.SetTyping{Identity: "Bob", IsTyping: false})
	assert.NotContains(t, room.Typing, "Bob")

	res, err := game.Apply(room, game.SetTyping{Identity: "Bob", IsTyping: false}, now)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	room := newRoom(t, "Alice", "Bob", "Carol")
	before := room.Clone()

	_ = apply(t, room, game.SendChallenge{From: "Alice", To: "Bob", Type: models.ChallengeTruth, Question: "q"})
	_ = apply(t, room, game.VoteKick{Voter: "Alice", Target: "Carol"})
	_ = apply(t, room, game.Leave{Identity: "Alice"})

	assert.Equal(t, before, room)
}

func TestApply_FailedCommandReturnsNoRoom(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	res, err := game.Apply(room, game.PostChat{Sender: "Alice", Text: ""}, now)

	require.Error(t, err)
	assert.Empty(t, res.Room.ID)
}

func TestCanDelete(t *testing.T) {
	room := newRoom(t, "Alice", "Bob")

	assert.NoError(t, game.CanDelete(room, "Alice"))
	assertValidation(t, game.CanDelete(room, "Bob"))
	assertValidation(t, game.CanDelete(room, ""))
}

func TestCode(t *testing.T) {
	assert.Equal(t, game.CodeValidation, game.Code(&game.ValidationError{Reason: "x"}))
	assert.Equal(t, game.CodeAuth, game.Code(&game.AuthError{}))
	assert.Equal(t, game.CodeNotFound, game.Code(fmt.Errorf("wrapped: %w", &game.NotFoundError{})))
	assert.Equal(t, game.CodeStore, game.Code(&game.ExternalStoreError{Op: "get", Err: fmt.Errorf("boom")}))
	assert.Equal(t, game.CodeInternal, game.Code(fmt.Errorf("other")))
}
