package chathub

import (
	"fmt"
	"sync"

	"pairchat/backend/internal/models"
)

type registryEntry struct {
	connID  string
	user    models.User
	session *Session
	waiting bool
}

// Registry maps live connections to user identities and their current
// session or pool membership. It holds no business rules.
// The session and waiting flags are only changed by the Engine while it holds
// its own mutex; reads are safe from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*registryEntry
	byUser map[string]*registryEntry
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*registryEntry),
		byUser: make(map[string]*registryEntry),
	}
}

// Bind records that connID belongs to user. Binding the same pair twice is a
// no-op; a user may hold only one connection at a time.
func (r *Registry) Bind(connID string, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.byUser[user.ID]; ok {
		if e.connID == connID {
			return nil
		}
		return fmt.Errorf("user %s: %w", user.ID, ErrAlreadyConnected)
	}
	if _, ok := r.byConn[connID]; ok {
		return fmt.Errorf("connection %s: %w", connID, ErrAlreadyConnected)
	}

	e := &registryEntry{connID: connID, user: user}
	r.byConn[connID] = e
	r.byUser[user.ID] = e
	return nil
}

// Unbind forgets connID and returns the user that owned it.
func (r *Registry) Unbind(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	delete(r.byUser, e.user.ID)
	return e.user.ID, true
}

// UserOf returns the user bound to connID.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	return e.user.ID, true
}

// Lookup returns the connection and cached preferences of userID.
func (r *Registry) Lookup(userID string) (string, models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byUser[userID]
	if !ok {
		return "", models.User{}, false
	}
	return e.connID, e.user, true
}

func (r *Registry) CurrentSession(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byUser[userID]
	if !ok || e.session == nil {
		return nil, false
	}
	return e.session, true
}

// CurrentPool reports whether userID is in the waiting pool.
func (r *Registry) CurrentPool(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byUser[userID]
	return ok && e.waiting
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func (r *Registry) setSession(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byUser[userID]; ok {
		e.session = s
	}
}

func (r *Registry) setWaiting(userID string, waiting bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byUser[userID]; ok {
		e.waiting = waiting
	}
}
