package roomhub

import (
	"truthordare/backend/internal/game"
	"truthordare/backend/internal/models"

	"github.com/google/uuid"
)

// RoomCommand turns an in-room client command into the matching transition.
// Registry commands (list, create, delete) are not transitions and are
// rejected here.
func RoomCommand(cmd models.ClientCommand) (game.Command, error) {
	if cmd.RoomID == "" {
		return nil, &game.ValidationError{Reason: "room_id is required"}
	}
	switch cmd.Type {
	case models.CmdJoin:
		return game.Join{Identity: cmd.SenderID, Password: cmd.Password}, nil
	case models.CmdLeave:
		return game.Leave{Identity: cmd.SenderID}, nil
	case models.CmdSendChallenge:
		return game.SendChallenge{From: cmd.SenderID, To: cmd.Target, Type: cmd.ChallengeType, Question: cmd.Text}, nil
	case models.CmdSubmitResponse:
		return game.SubmitResponse{Identity: cmd.SenderID, Text: cmd.Text}, nil
	case models.CmdAddReaction:
		return game.AddReaction{Identity: cmd.SenderID, Text: cmd.Text}, nil
	case models.CmdResolveChallenge:
		return game.ResolveChallenge{Requester: cmd.SenderID, Accepted: cmd.Accepted}, nil
	case models.CmdVoteKick:
		return game.VoteKick{Voter: cmd.SenderID, Target: cmd.Target}, nil
	case models.CmdChat:
		return game.PostChat{ID: uuid.NewString(), Sender: cmd.SenderID, Text: cmd.Text}, nil
	case models.CmdTyping:
		return game.SetTyping{Identity: cmd.SenderID, IsTyping: cmd.IsTyping}, nil
	default:
		return nil, &game.ValidationError{Reason: "unknown command " + cmd.Type}
	}
}
