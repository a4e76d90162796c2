package telegram

import (
	"strings"

	"truthordare/backend/internal/models"
)

// UsageError means a bot command was missing arguments.
type UsageError struct {
	Command string
}

func (e *UsageError) Error() string { return "usage: /" + e.Command }

// UnknownCommandError means the bot has no such command.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string { return "unknown command /" + e.Command }

// ParseCommand maps a bot command and its argument string onto a hub command.
// The room id is left empty for in-room commands; the hub fills it from the
// client's session.
func ParseCommand(command, args string) (models.ClientCommand, error) {
	args = strings.TrimSpace(args)
	first, rest := splitFirst(args)

	switch command {
	case "rooms":
		return models.ClientCommand{Type: models.CmdListRooms}, nil

	case "create":
		if first == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		// A second word makes the room private.
		name, password := first, strings.TrimSpace(rest)
		return models.ClientCommand{
			Type:      models.CmdCreateRoom,
			Name:      name,
			IsPrivate: password != "",
			Password:  password,
		}, nil

	case "join":
		if first == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{Type: models.CmdJoin, RoomID: first, Password: strings.TrimSpace(rest)}, nil

	case "leave":
		return models.ClientCommand{Type: models.CmdLeave}, nil

	case "delete":
		return models.ClientCommand{Type: models.CmdDeleteRoom}, nil

	case "truth", "dare":
		question := strings.TrimSpace(rest)
		if first == "" || question == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{
			Type:          models.CmdSendChallenge,
			Target:        first,
			ChallengeType: models.ChallengeType(command),
			Text:          question,
		}, nil

	case "answer":
		if args == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{Type: models.CmdSubmitResponse, Text: args}, nil

	case "react":
		if args == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{Type: models.CmdAddReaction, Text: args}, nil

	case "accept", "reject":
		return models.ClientCommand{Type: models.CmdResolveChallenge, Accepted: command == "accept"}, nil

	case "kick":
		if first == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{Type: models.CmdVoteKick, Target: first}, nil

	case "say":
		if args == "" {
			return models.ClientCommand{}, &UsageError{Command: command}
		}
		return models.ClientCommand{Type: models.CmdChat, Text: args}, nil
	}
	return models.ClientCommand{}, &UnknownCommandError{Command: command}
}

func splitFirst(s string) (string, string) {
	first, rest, _ := strings.Cut(s, " ")
	return strings.TrimSpace(first), rest
}
