package chathub

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

// Keys of the system_info / error notices sent by the hub. Clients render
// them; the Telegram client localizes them.
const (
	NoticeNotInChat         = "not_in_chat"
	NoticeNotRegistered     = "not_registered"
	NoticeAlreadyConnected  = "already_connected"
	NoticeUnsupportedAction = "unsupported_message_type"
	NoticeInternal          = "error_generic"
)

// ManagerService is the hub between transport clients and the Engine. It owns
// the set of live clients and implements EventChannel for the Engine.
type ManagerService struct {
	mu      sync.RWMutex
	Clients map[string]Client

	IncomingCh   chan models.ChatMessage
	RegisterCh   chan Client
	UnregisterCh chan Client

	Engine *Engine
	log    *slog.Logger
}

// NewManagerService creates a hub. The Engine is attached afterwards with
// SetEngine because the Engine needs the hub as its EventChannel.
func NewManagerService(log *slog.Logger) *ManagerService {
	if log == nil {
		log = slog.Default()
	}
	return &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan models.ChatMessage),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		log:          log,
	}
}

func (m *ManagerService) SetEngine(e *Engine) {
	m.Engine = e
}

// Run обробляє реєстрацію клієнтів та вхідні повідомлення до скасування ctx.
func (m *ManagerService) Run(ctx context.Context) {
	m.log.Info("ManagerService started")
	for {
		select {
		case <-ctx.Done():
			m.log.Info("ManagerService stopped")
			return

		case client := <-m.RegisterCh:
			m.handleRegister(ctx, client)

		case client := <-m.UnregisterCh:
			m.handleUnregister(client)

		case msg := <-m.IncomingCh:
			m.handleIncoming(msg)
		}
	}
}

// Send implements EventChannel. It never blocks.
func (m *ManagerService) Send(connID string, msg models.ChatMessage) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.Clients[connID]
	if !ok {
		return ErrUnknownConnection
	}
	select {
	case client.GetSendChannel() <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToUser delivers msg to whichever connection userID currently holds.
func (m *ManagerService) SendToUser(userID string, msg models.ChatMessage) error {
	connID, ok := m.Engine.ConnectionOf(userID)
	if !ok {
		return ErrNotConnected
	}
	return m.Send(connID, msg)
}

// Deliver relays a message on behalf of userID, for transports that do not
// go through IncomingCh (the picture upload endpoint).
func (m *ManagerService) Deliver(userID string, msg Message) error {
	return m.Engine.RelayMessage(userID, msg)
}

// Client returns the live client with connID.
func (m *ManagerService) Client(connID string) (Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.Clients[connID]
	return c, ok
}

// AddClient stores c unless its connection id is taken.
func (m *ManagerService) AddClient(c Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Clients[c.GetConnID()]; exists {
		return false
	}
	m.Clients[c.GetConnID()] = c
	return true
}

// removeClient drops connID from the map before closing it, so Send never
// writes to a closed channel.
func (m *ManagerService) removeClient(connID string) {
	m.mu.Lock()
	c, ok := m.Clients[connID]
	delete(m.Clients, connID)
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

func (m *ManagerService) handleRegister(ctx context.Context, client Client) {
	connID, userID := client.GetConnID(), client.GetUserID()
	if !m.AddClient(client) {
		m.log.Warn("Duplicate connection id, dropping client", "conn_id", connID)
		client.Close()
		return
	}

	if err := m.Engine.Connect(ctx, connID, userID); err != nil {
		notice := NoticeInternal
		switch {
		case errors.Is(err, storage.ErrNotFound):
			notice = NoticeNotRegistered
		case errors.Is(err, ErrAlreadyConnected):
			notice = NoticeAlreadyConnected
		}
		m.log.Warn("Rejected connection", "conn_id", connID, "user_id", userID, "error", err)
		_ = m.Send(connID, models.ChatMessage{Type: models.TypeError, SenderID: models.SystemSenderID, Content: notice})
		m.removeClient(connID)
		return
	}

	if _, err := m.Engine.Enqueue(userID); err != nil {
		m.log.Error("Enqueue on connect failed", "user_id", userID, "error", err)
	}
}

func (m *ManagerService) handleUnregister(client Client) {
	connID := client.GetConnID()
	m.removeClient(connID)
	m.Engine.Disconnect(connID)
}

func (m *ManagerService) handleIncoming(msg models.ChatMessage) {
	var err error
	switch msg.Type {
	case models.TypeMessage:
		if strings.TrimSpace(msg.Content) == "" {
			return
		}
		err = m.Engine.RelayMessage(msg.SenderID, TextMessage(msg.Content))
	case models.TypePicture:
		if len(msg.Picture) == 0 {
			return
		}
		err = m.Engine.RelayMessage(msg.SenderID, PictureMessage(msg.Picture))
	case models.TypeCloseChatRoom:
		err = m.Engine.Close(msg.SenderID)
	case models.TypeSearch:
		_, err = m.Engine.Enqueue(msg.SenderID)
	default:
		m.log.Warn("Unsupported message type", "type", msg.Type, "user_id", msg.SenderID)
		m.notice(msg.SenderID, models.TypeError, NoticeUnsupportedAction)
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrNotInSession):
		m.notice(msg.SenderID, models.TypeSystemInfo, NoticeNotInChat)
	case errors.Is(err, ErrAlreadyInSession):
		// Searching while chatting is ignored.
	default:
		m.log.Warn("Failed to handle message", "type", msg.Type, "user_id", msg.SenderID, "error", err)
	}
}

func (m *ManagerService) notice(userID, kind, key string) {
	if err := m.SendToUser(userID, models.ChatMessage{Type: kind, SenderID: models.SystemSenderID, Content: key}); err != nil {
		m.log.Debug("Notice not delivered", "user_id", userID, "notice", key, "error", err)
	}
}
