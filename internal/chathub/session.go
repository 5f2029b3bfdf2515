package chathub

import (
	"sync"
	"time"

	"pairchat/backend/internal/models"

	"github.com/google/uuid"
)

// Session is a live pairing of two users. Relays hold the read lock, so once
// markClosed returns no further message reaches either side.
type Session struct {
	ID        string
	UserA     string
	UserB     string
	CreatedAt time.Time

	mu     sync.RWMutex
	closed bool
}

func newSession(userA, userB string, now time.Time) *Session {
	return &Session{
		ID:        uuid.New().String(),
		UserA:     userA,
		UserB:     userB,
		CreatedAt: now,
	}
}

// Partner returns the other participant.
func (s *Session) Partner(userID string) (string, bool) {
	switch userID {
	case s.UserA:
		return s.UserB, true
	case s.UserB:
		return s.UserA, true
	}
	return "", false
}

func (s *Session) Participants() []string {
	return []string{s.UserA, s.UserB}
}

func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// markClosed returns false if the session was already closed.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	return true
}

func (s *Session) relay(senderID string, deliver func(partnerID string) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrNotInSession
	}
	partnerID, ok := s.Partner(senderID)
	if !ok {
		return ErrNotInSession
	}
	return deliver(partnerID)
}

// room is the audit row written when the session opens.
func (s *Session) room() models.ChatRoom {
	return models.ChatRoom{
		RoomID:    s.ID,
		User1ID:   s.UserA,
		User2ID:   s.UserB,
		IsActive:  true,
		StartedAt: s.CreatedAt,
	}
}
