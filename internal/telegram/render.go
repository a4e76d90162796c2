package telegram

import (
	"fmt"
	"sort"
	"strings"

	"truthordare/backend/internal/game"
	"truthordare/backend/internal/localization"
	"truthordare/backend/internal/models"
)

// renderer turns hub messages into chat text for one Telegram user. It keeps
// the last room it showed so a new snapshot is told as what changed.
type renderer struct {
	loc      *localization.Localizer
	identity string
	room     *models.Room
}

func (r *renderer) render(lang string, msg models.ServerMessage) []string {
	switch msg.Type {
	case models.MsgRooms:
		return []string{r.roomList(lang, msg.Rooms)}

	case models.MsgRoom:
		if msg.Room == nil {
			return nil
		}
		next := *msg.Room
		var out []string
		if r.room == nil || r.room.ID != next.ID {
			out = []string{r.summary(lang, next)}
		} else {
			out = r.diff(lang, *r.room, next)
		}
		r.room = &next
		return out

	case models.MsgNotice:
		switch msg.Notice {
		case models.NoticeRoomDeleted, models.NoticeKicked, models.NoticeLeft:
			r.room = nil
		case models.NoticeWinner:
			return []string{r.loc.Format(lang, "notice_winner", msg.Subject)}
		}
		return []string{r.loc.GetString(lang, "notice_"+msg.Notice)}

	case models.MsgError:
		if msg.Code == game.CodeValidation {
			return []string{r.loc.Format(lang, "error_validation", strings.TrimPrefix(msg.Error, "validation: "))}
		}
		return []string{r.loc.GetString(lang, "error_"+msg.Code)}
	}
	return nil
}

func (r *renderer) roomList(lang string, rooms map[string]models.Room) string {
	if len(rooms) == 0 {
		return r.loc.GetString(lang, "rooms_empty")
	}
	list := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		list = append(list, room)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})

	lines := []string{r.loc.GetString(lang, "rooms_header")}
	for _, room := range list {
		lock := ""
		if room.IsPrivate {
			lock = " 🔒"
		}
		lines = append(lines, r.loc.Format(lang, "room_line", room.Name, len(room.Players), lock, room.ID))
	}
	return strings.Join(lines, "\n")
}

func (r *renderer) summary(lang string, room models.Room) string {
	return r.loc.Format(lang, "room_summary", room.Name, scores(room), room.CurrentTurn)
}

// diff describes what changed between two snapshots of the same room.
func (r *renderer) diff(lang string, prev, next models.Room) []string {
	var out []string

	for _, p := range next.Players {
		if !prev.HasPlayer(p) {
			out = append(out, r.loc.Format(lang, "player_joined", p))
		}
	}
	for _, p := range prev.Players {
		if !next.HasPlayer(p) {
			out = append(out, r.loc.Format(lang, "player_left", p))
		}
	}

	seen := make(map[string]bool, len(prev.Messages))
	for _, m := range prev.Messages {
		seen[m.ID] = true
	}
	for _, m := range next.Messages {
		if !seen[m.ID] && m.Sender != r.identity {
			out = append(out, r.loc.Format(lang, "chat_line", m.Sender, m.Message))
		}
	}

	if c := next.CurrentChallenge; c != nil {
		old := prev.CurrentChallenge
		fresh := old == nil || old.CreatedAt != c.CreatedAt || old.From != c.From || old.To != c.To
		if fresh {
			kind := r.loc.GetString(lang, "type_"+string(c.Type))
			out = append(out, r.loc.Format(lang, "challenge_new", c.From, c.To, kind, c.Question))
		}
		if c.Response != "" && (fresh || old.Response == "") {
			out = append(out, r.loc.Format(lang, "challenge_response", c.To, c.Response))
		}
		if c.Completed && (fresh || !old.Completed) {
			out = append(out, r.loc.Format(lang, "challenge_resolved", scores(next)))
		}
	}
	return out
}

// scores lists the players in turn order with their points.
func scores(room models.Room) string {
	parts := make([]string, 0, len(room.Players))
	for _, p := range room.Players {
		parts = append(parts, fmt.Sprintf("%s (%d)", p, room.Score[p]))
	}
	return strings.Join(parts, ", ")
}
