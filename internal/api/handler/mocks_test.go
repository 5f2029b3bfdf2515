package handler_test

import (
	"context"

	"pairchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
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

type MockClient struct {
	connID      string
	userID      string
	RecvChannel chan models.ChatMessage
}

func newMockClient(connID, userID string) *MockClient {
	return &MockClient{connID: connID, userID: userID, RecvChannel: make(chan models.ChatMessage, 10)}
}

func (c *MockClient) GetConnID() string                         { return c.connID }
func (c *MockClient) GetUserID() string                         { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.ChatMessage { return c.RecvChannel }
func (c *MockClient) Run()                                      {}
func (c *MockClient) Close()                                    {}
