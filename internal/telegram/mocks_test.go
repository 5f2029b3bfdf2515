package telegram

import (
	"context"
	"sync"

	"pairchat/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of RegisterStorage and chathub.Store.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByTelegramID(telegramID int64) (*models.User, error) {
	args := m.Called(telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SaveUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) GetPreferences(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockBot records everything sent through it.
type MockBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	fileURLs map[string]string
}

func newMockBot() *MockBot {
	return &MockBot{fileURLs: make(map[string]string)}
}

func (b *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *MockBot) GetFileDirectURL(fileID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileURLs[fileID], nil
}

// texts returns the text of every plain message sent so far.
func (b *MockBot) texts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func command(chatID int64, text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: length},
		},
		From: &tgbotapi.User{ID: chatID, LanguageCode: "en"},
		Chat: tgbotapi.Chat{ID: chatID},
	}
}

func textMessage(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: chatID, LanguageCode: "en"},
		Chat: tgbotapi.Chat{ID: chatID},
	}
}
