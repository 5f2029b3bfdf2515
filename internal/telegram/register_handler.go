package telegram

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RegisterStorage defines the storage methods required by the register handler.
type RegisterStorage interface {
	GetUserByTelegramID(telegramID int64) (*models.User, error)
	SaveUser(user *models.User) error
}

// HandleRegisterCommand processes "/register <age> <gender> <preference>".
// It creates the user on first use and updates the details afterwards, then
// replies with the outcome. The saved user is returned on success.
func HandleRegisterCommand(msg *tgbotapi.Message, s RegisterStorage, bot Sender, loc *localization.Localizer, log *slog.Logger) (*models.User, bool) {
	lang := languageOf(msg)
	reply := func(key string) {
		if _, err := bot.Send(tgbotapi.NewMessage(msg.Chat.ID, loc.GetString(lang, key))); err != nil {
			log.Error("Error sending register reply", "chat_id", msg.Chat.ID, "error", err)
		}
	}

	args := strings.Fields(msg.Text)
	if len(args) != 4 {
		reply("register_usage")
		return nil, false
	}
	age, err := strconv.Atoi(args[1])
	if err != nil {
		reply("register_invalid")
		return nil, false
	}

	chatID := msg.Chat.ID
	user, err := s.GetUserByTelegramID(chatID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		user = &models.User{TelegramID: &chatID}
	case err != nil:
		log.Error("Error retrieving user for register command", "chat_id", chatID, "error", err)
		reply("register_failed")
		return nil, false
	}

	user.Age = age
	user.Gender = strings.ToLower(args[2])
	user.PartnerPreferredGender = strings.ToLower(args[3])
	if err := user.Validate(); err != nil {
		reply("register_invalid")
		return nil, false
	}

	if err := s.SaveUser(user); err != nil {
		log.Error("Error saving user from register command", "chat_id", chatID, "error", err)
		reply("register_failed")
		return nil, false
	}

	reply("register_done")
	return user, true
}

func languageOf(msg *tgbotapi.Message) string {
	if msg.From != nil && msg.From.LanguageCode != "" {
		return msg.From.LanguageCode
	}
	return localization.DefaultLanguage
}
