package telegram

import (
	"strconv"
	"sync"
	"sync/atomic"

	"truthordare/backend/internal/localization"
	"truthordare/backend/internal/models"
	"truthordare/backend/internal/roomhub"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const sendBuffer = 32

// Sender is the part of tgbotapi.BotAPI the bot needs to talk back.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client implements roomhub.Client for one Telegram chat. Commands come in
// through BotService; the client only writes.
type Client struct {
	ID       string
	ChatID   int64
	UserID   string
	Identity string
	Send     chan models.ServerMessage
	Bot      Sender
	Log      logrus.FieldLogger

	mu     sync.RWMutex
	lang   string
	closed atomic.Bool
	view   renderer
}

// NewClient builds the client for chatID playing as identity.
func NewClient(chatID int64, userID, identity, lang string, bot Sender, loc *localization.Localizer, log logrus.FieldLogger) *Client {
	id := "tg:" + strconv.FormatInt(chatID, 10)
	return &Client{
		ID:       id,
		ChatID:   chatID,
		UserID:   userID,
		Identity: identity,
		Send:     make(chan models.ServerMessage, sendBuffer),
		Bot:      bot,
		Log:      log.WithFields(logrus.Fields{"client_id": id, "identity": identity}),
		lang:     lang,
		view:     renderer{loc: loc, identity: identity},
	}
}

func (c *Client) GetClientID() string { return c.ID }

// GetUserID returns the identity the hub seats in rooms.
func (c *Client) GetUserID() string                           { return c.Identity }
func (c *Client) GetSendChannel() chan<- models.ServerMessage { return c.Send }

// Run starts the write pump; reads are handled centrally by BotService.
func (c *Client) Run() {
	go c.writePump()
}

func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.Send)
	}
}

// Closed reports whether the hub has let go of the client.
func (c *Client) Closed() bool { return c.closed.Load() }

func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
}

func (c *Client) writePump() {
	defer c.Log.Debug("Telegram write pump stopped")

	for message := range c.Send {
		for _, text := range c.view.render(c.Language(), message) {
			c.reply(text)
		}
	}
}

func (c *Client) reply(text string) {
	if text == "" {
		return
	}
	if _, err := c.Bot.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
		c.Log.WithError(err).Warn("Failed to send telegram message")
	}
}

var _ roomhub.Client = (*Client)(nil)
