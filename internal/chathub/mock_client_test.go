package chathub_test

import (
	"sync"

	"pairchat/backend/internal/models"
)

type MockClient struct {
	connID      string
	userID      string
	RecvChannel chan models.ChatMessage

	mu     sync.Mutex
	closed int
}

func newMockClient(connID, userID string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		RecvChannel: make(chan models.ChatMessage, 10),
	}
}

func (c *MockClient) GetConnID() string { return c.connID }

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) GetSendChannel() chan<- models.ChatMessage {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *MockClient) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// drain returns everything buffered so far without blocking.
func (c *MockClient) drain() []models.ChatMessage {
	var out []models.ChatMessage
	for {
		select {
		case msg := <-c.RecvChannel:
			out = append(out, msg)
		default:
			return out
		}
	}
}
