// Package telegram lets people play from a Telegram chat. Each chat becomes
// a hub client; bot commands are translated into hub commands and hub
// messages are rendered back as localized text.
package telegram

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"truthordare/backend/internal/localization"
	"truthordare/backend/internal/models"
	"truthordare/backend/internal/roomhub"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// UserStore is what the bot needs from storage.
type UserStore interface {
	SaveTelegramUser(telegramID int64, username string) (*models.User, error)
	UpdateUserLanguage(userID, lang string) error
}

// BotService receives Telegram updates and routes them to the hub.
type BotService struct {
	Bot       Sender
	Hub       *roomhub.ManagerService
	Storage   UserStore
	Localizer *localization.Localizer
	Log       logrus.FieldLogger

	api *tgbotapi.BotAPI
	// clients is only touched by the update loop.
	clients map[int64]*Client
}

// NewBotService authorizes against the Bot API with token.
func NewBotService(token string, hub *roomhub.ManagerService, s UserStore, loc *localization.Localizer, log logrus.FieldLogger) (*BotService, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false
	log.WithField("account", api.Self.UserName).Info("Telegram bot authorized")

	svc := newBotService(api, hub, s, loc, log)
	svc.api = api
	return svc, nil
}

func newBotService(bot Sender, hub *roomhub.ManagerService, s UserStore, loc *localization.Localizer, log logrus.FieldLogger) *BotService {
	return &BotService{
		Bot:       bot,
		Hub:       hub,
		Storage:   s,
		Localizer: loc,
		Log:       log,
		clients:   make(map[int64]*Client),
	}
}

// Run long-polls the Bot API until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.api.GetUpdatesChan(u)
	s.Start(ctx, updates)
	s.api.StopReceivingUpdates()
}

// Start handles updates one at a time until ctx is cancelled or the channel closes.
func (s *BotService) Start(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				s.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (s *BotService) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	c := s.client(ctx, msg)
	if c == nil {
		return
	}

	if !msg.IsCommand() {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		s.submit(ctx, c, models.ClientCommand{Type: models.CmdChat, Text: text})
		return
	}

	command := msg.Command()
	switch command {
	case "start", "help":
		c.reply(s.Localizer.GetString(c.Language(), "help"))
		return
	case "lang":
		s.setLanguage(c, msg.CommandArguments())
		return
	}

	cmd, err := ParseCommand(command, msg.CommandArguments())
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		c.reply(s.Localizer.GetString(c.Language(), "usage_"+usage.Command))
		return
	case err != nil:
		c.reply(s.Localizer.GetString(c.Language(), "unknown_command"))
		return
	}
	s.submit(ctx, c, cmd)
}

// client returns the live hub client for the chat, registering a new one on
// first contact or after the hub dropped the previous one.
func (s *BotService) client(ctx context.Context, msg *tgbotapi.Message) *Client {
	chatID := msg.Chat.ID
	if c, ok := s.clients[chatID]; ok && !c.Closed() {
		return c
	}

	identity := identityOf(msg)
	log := s.Log.WithFields(logrus.Fields{"chat_id": chatID, "identity": identity})
	user, err := s.Storage.SaveTelegramUser(chatID, identity)
	if err != nil {
		log.WithError(err).Error("Failed to load telegram user")
		if _, err := s.Bot.Send(tgbotapi.NewMessage(chatID, s.Localizer.GetString(localization.DefaultLanguage, "error_store"))); err != nil {
			log.WithError(err).Warn("Failed to send telegram message")
		}
		return nil
	}
	lang := user.Language
	if lang == "" {
		lang = localization.DefaultLanguage
	}

	c := NewClient(chatID, user.ID, identity, lang, s.Bot, s.Localizer, s.Log)
	select {
	case s.Hub.RegisterCh <- c:
	case <-ctx.Done():
		return nil
	case <-s.Hub.Done():
		return nil
	}
	c.Run()
	s.clients[chatID] = c
	log.Info("Telegram client registered")

	s.resume(ctx, c)
	return c
}

// resume puts a returning player back into the room they still hold a seat
// in. Rejoining is a no-op for the room, so no password is needed.
func (s *BotService) resume(ctx context.Context, c *Client) {
	rooms, err := s.Hub.Rooms.ListRooms(ctx)
	if err != nil {
		c.Log.WithError(err).Warn("Failed to look up rooms to resume")
		return
	}
	ids := make([]string, 0, len(rooms))
	for id, room := range rooms {
		if room.HasPlayer(c.Identity) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Strings(ids)
	c.Log.WithField("room_id", ids[0]).Info("Resuming telegram player")
	s.submit(ctx, c, models.ClientCommand{Type: models.CmdJoin, RoomID: ids[0]})
}

func (s *BotService) submit(ctx context.Context, c *Client, cmd models.ClientCommand) {
	select {
	case s.Hub.IncomingCh <- roomhub.Envelope{Client: c, Command: cmd}:
	case <-ctx.Done():
	case <-s.Hub.Done():
	}
}

func (s *BotService) setLanguage(c *Client, args string) {
	lang := strings.ToLower(strings.TrimSpace(args))
	if !s.Localizer.Supports(lang) {
		c.reply(s.Localizer.Format(c.Language(), "lang_unknown", strings.Join(s.Localizer.Languages(), ", ")))
		return
	}
	c.SetLanguage(lang)
	if err := s.Storage.UpdateUserLanguage(c.UserID, lang); err != nil {
		c.Log.WithError(err).Warn("Failed to save language")
	}
	c.reply(s.Localizer.Format(lang, "lang_set", lang))
}

// identityOf is the name the chat plays under: the Telegram username, or a
// stable fallback for accounts without one.
func identityOf(msg *tgbotapi.Message) string {
	if msg.From != nil && msg.From.UserName != "" {
		return msg.From.UserName
	}
	return "tg" + strconv.FormatInt(msg.Chat.ID, 10)
}
