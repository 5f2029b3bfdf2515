// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, processing them,
// and communicating with the central chat hub.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// connPrefix marks Telegram connection ids; one chat is one connection.
const connPrefix = "tg:"

var errPictureTooLarge = errors.New("picture exceeds size limit")

// API is the subset of *tgbotapi.BotAPI used to handle messages.
type API interface {
	Sender
	GetFileDirectURL(fileID string) (string, error)
}

// BotService is responsible for receiving Telegram updates and routing them to the hub.
type BotService struct {
	BotAPI          *tgbotapi.BotAPI
	API             API
	Hub             *chathub.ManagerService
	Storage         RegisterStorage
	Localizer       *localization.Localizer
	HTTP            *http.Client
	MaxPictureBytes int64
	SendBufferSize  int
	Log             *slog.Logger
}

// NewBotService creates a new BotService instance.
func NewBotService(token string, hub *chathub.ManagerService, s RegisterStorage, loc *localization.Localizer, maxPicture int64, buffer int, log *slog.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info("Authorized on Telegram", "account", bot.Self.UserName)

	return &BotService{
		BotAPI:          bot,
		API:             bot,
		Hub:             hub,
		Storage:         s,
		Localizer:       loc,
		HTTP:            &http.Client{Timeout: 30 * time.Second},
		MaxPictureBytes: maxPicture,
		SendBufferSize:  buffer,
		Log:             log,
	}, nil
}

// Run is the main loop for receiving Telegram updates. It returns when ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				s.handleMessage(update.Message)
			}
		}
	}
}

func connIDFor(chatID int64) string {
	return connPrefix + strconv.FormatInt(chatID, 10)
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	if msg.IsCommand() {
		s.handleCommand(msg)
		return
	}

	user, ok := s.registeredUser(msg)
	if !ok {
		return
	}
	s.ensureClient(user.ID, msg)

	switch {
	case msg.Text != "":
		s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypeMessage, SenderID: user.ID, Content: msg.Text}
	case len(msg.Photo) > 0:
		data, err := s.downloadPhoto(msg.Photo)
		if err != nil {
			s.Log.Warn("Failed to fetch Telegram photo", "chat_id", msg.Chat.ID, "error", err)
			s.reply(msg, "picture_failed")
			return
		}
		s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypePicture, SenderID: user.ID, Picture: data}
	default:
		s.reply(msg, "unsupported_message_type")
	}
}

func (s *BotService) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		user, err := s.Storage.GetUserByTelegramID(msg.Chat.ID)
		if err != nil {
			s.reply(msg, "welcome")
			return
		}
		s.search(user.ID, msg)
	case "help":
		s.reply(msg, "help")
	case "register":
		user, ok := HandleRegisterCommand(msg, s.Storage, s.API, s.Localizer, s.Log)
		if ok {
			s.ensureClient(user.ID, msg)
		}
	case "search":
		if user, ok := s.registeredUser(msg); ok {
			s.search(user.ID, msg)
		}
	case "stop":
		if user, ok := s.registeredUser(msg); ok {
			s.ensureClient(user.ID, msg)
			s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypeCloseChatRoom, SenderID: user.ID}
		}
	case "next":
		if user, ok := s.registeredUser(msg); ok {
			s.ensureClient(user.ID, msg)
			s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypeCloseChatRoom, SenderID: user.ID}
			s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypeSearch, SenderID: user.ID}
		}
	default:
		s.reply(msg, "help")
	}
}

// search starts a partner search. A fresh client searches on registration,
// so the explicit request is only sent for an existing one.
func (s *BotService) search(userID string, msg *tgbotapi.Message) {
	if s.ensureClient(userID, msg) {
		return
	}
	s.Hub.IncomingCh <- models.ChatMessage{Type: models.TypeSearch, SenderID: userID}
}

func (s *BotService) registeredUser(msg *tgbotapi.Message) (*models.User, bool) {
	user, err := s.Storage.GetUserByTelegramID(msg.Chat.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.Log.Error("Error getting user by telegram id", "chat_id", msg.Chat.ID, "error", err)
			s.reply(msg, "error_generic")
			return nil, false
		}
		s.reply(msg, "not_registered")
		return nil, false
	}
	return user, true
}

// ensureClient registers a hub client for the chat if it has none and
// reports whether one was created.
func (s *BotService) ensureClient(userID string, msg *tgbotapi.Message) bool {
	connID := connIDFor(msg.Chat.ID)
	if _, ok := s.Hub.Client(connID); ok {
		return false
	}

	client := &Client{
		ConnID:    connID,
		UserID:    userID,
		ChatID:    msg.Chat.ID,
		Lang:      languageOf(msg),
		Send:      make(chan models.ChatMessage, s.SendBufferSize),
		Bot:       s.API,
		Localizer: s.Localizer,
		Log:       s.Log,
	}
	client.Run()
	s.Hub.RegisterCh <- client
	return true
}

// downloadPhoto fetches the largest size within the picture limit.
func (s *BotService) downloadPhoto(sizes []tgbotapi.PhotoSize) ([]byte, error) {
	for i := len(sizes) - 1; i >= 0; i-- {
		photo := sizes[i]
		if int64(photo.FileSize) > s.MaxPictureBytes {
			continue
		}

		url, err := s.API.GetFileDirectURL(photo.FileID)
		if err != nil {
			return nil, fmt.Errorf("resolve file %s: %w", photo.FileID, err)
		}
		resp, err := s.HTTP.Get(url)
		if err != nil {
			return nil, fmt.Errorf("download file %s: %w", photo.FileID, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, s.MaxPictureBytes+1))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", photo.FileID, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download file %s: status %d", photo.FileID, resp.StatusCode)
		}
		if int64(len(data)) > s.MaxPictureBytes {
			return nil, errPictureTooLarge
		}
		return data, nil
	}
	return nil, errPictureTooLarge
}

func (s *BotService) reply(msg *tgbotapi.Message, key string) {
	text := s.Localizer.GetString(languageOf(msg), key)
	if _, err := s.API.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		s.Log.Error("Failed to send Telegram reply", "chat_id", msg.Chat.ID, "error", err)
	}
}
