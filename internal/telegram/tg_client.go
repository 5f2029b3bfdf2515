package telegram

import (
	"log/slog"
	"sync"

	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Bot API used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client реалізує інтерфейс chathub.Client для чату Telegram.
type Client struct {
	ConnID    string
	UserID    string
	ChatID    int64
	Lang      string
	Send      chan models.ChatMessage
	Bot       Sender
	Localizer *localization.Localizer
	Log       *slog.Logger

	closeOnce sync.Once
}

func (c *Client) GetConnID() string                         { return c.ConnID }
func (c *Client) GetUserID() string                         { return c.UserID }
func (c *Client) GetSendChannel() chan<- models.ChatMessage { return c.Send }

// Run запускає 'write pump'. 'Read pump' обробляється централізовано в BotService.
func (c *Client) Run() {
	go c.writePump()
}

// Close закриває Send канал
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// writePump слухає канал Send і надсилає повідомлення в Telegram
func (c *Client) writePump() {
	defer c.Log.Debug("Telegram writePump stopped", "chat_id", c.ChatID)

	for message := range c.Send {
		tgMsg := c.render(message)
		if tgMsg == nil {
			continue
		}
		if _, err := c.Bot.Send(tgMsg); err != nil {
			c.Log.Error("Failed to send Telegram message", "chat_id", c.ChatID, "type", message.Type, "error", err)
		}
	}
}

// render turns a hub event into a Telegram message, or nil if the event has
// no Telegram form.
func (c *Client) render(message models.ChatMessage) tgbotapi.Chattable {
	switch message.Type {
	case models.TypeMessage:
		return tgbotapi.NewMessage(c.ChatID, message.Content)

	case models.TypePicture:
		return tgbotapi.NewPhoto(c.ChatID, tgbotapi.FileBytes{Name: "picture", Bytes: message.Picture})

	case models.TypeSearching:
		return c.text("searching")

	case models.TypeSessionStarted:
		return c.text("match_found")

	case models.TypeSessionClosed:
		if message.SenderID == c.UserID {
			return c.text("chat_closed_self")
		}
		return c.text("chat_closed_partner")

	case models.TypePartnerDisconnected:
		return c.text("partner_disconnected")

	case models.TypeSystemInfo, models.TypeError:
		return c.text(message.Content)
	}

	c.Log.Warn("Unhandled event type for Telegram client", "chat_id", c.ChatID, "type", message.Type)
	return nil
}

func (c *Client) text(key string) tgbotapi.MessageConfig {
	return tgbotapi.NewMessage(c.ChatID, c.Localizer.GetString(c.Lang, key))
}
