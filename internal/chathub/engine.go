package chathub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
)

// Store resolves a user's matching attributes.
type Store interface {
	GetPreferences(ctx context.Context, userID string) (*models.User, error)
}

// EventChannel delivers events to a connection. Send must not block; a full
// or unknown connection is reported as an error and the event is dropped.
type EventChannel interface {
	Send(connID string, msg models.ChatMessage) error
}

// Journal receives lifecycle notifications after the engine lock is released.
type Journal interface {
	RoomOpened(room models.ChatRoom)
	RoomClosed(roomID, reason string)
	Queued(userID string)
	Dequeued(userID string)
}

type NopJournal struct{}

func (NopJournal) RoomOpened(models.ChatRoom) {}
func (NopJournal) RoomClosed(string, string)  {}
func (NopJournal) Queued(string)              {}
func (NopJournal) Dequeued(string)            {}

const (
	ReasonClosed       = "closed"
	ReasonDisconnected = "disconnected"
)

type UserState int

const (
	StateIdle UserState = iota
	StateWaiting
	StateInSession
	StateGraceWindow
)

func (s UserState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateInSession:
		return "in_session"
	case StateGraceWindow:
		return "grace_window"
	default:
		return "idle"
	}
}

type Options struct {
	RequeueDelay time.Duration
	Clock        Clock
	Journal      Journal
	Log          *slog.Logger
}

type Stats struct {
	Connected       int `json:"connected"`
	Waiting         int `json:"waiting"`
	Sessions        int `json:"sessions"`
	PendingRequeues int `json:"pending_requeues"`
}

// Engine pairs waiting users, relays messages inside sessions and requeues
// users whose partner disconnected. Pool, session and requeue state change
// only under mu, so each of those transitions is atomic.
type Engine struct {
	mu         sync.Mutex
	store      Store
	channel    EventChannel
	registry   *Registry
	matcher    *Matcher
	supervisor *supervisor
	sessions   map[string]*Session

	clock   Clock
	journal Journal
	log     *slog.Logger
}

func NewEngine(store Store, channel EventChannel, opts Options) *Engine {
	if opts.RequeueDelay <= 0 {
		opts.RequeueDelay = config.DefaultRequeueDelay
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Journal == nil {
		opts.Journal = NopJournal{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Engine{
		store:      store,
		channel:    channel,
		registry:   NewRegistry(),
		matcher:    NewMatcher(),
		supervisor: newSupervisor(opts.Clock, opts.RequeueDelay),
		sessions:   make(map[string]*Session),
		clock:      opts.Clock,
		journal:    opts.Journal,
		log:        opts.Log,
	}
}

// deferred collects journal writes made while the engine lock is held.
type deferred []func(Journal)

func (d *deferred) add(f func(Journal)) { *d = append(*d, f) }

func (e *Engine) flush(d deferred) {
	for _, f := range d {
		f(e.journal)
	}
}

// Registry exposes the connection bindings for read-only queries.
func (e *Engine) Registry() *Registry { return e.registry }

// Connect binds connID to userID after loading the user's preferences.
func (e *Engine) Connect(ctx context.Context, connID, userID string) error {
	user, err := e.store.GetPreferences(ctx, userID)
	if err != nil {
		return fmt.Errorf("load preferences for %s: %w", userID, err)
	}
	u := *user
	u.ID = userID
	if err := e.registry.Bind(connID, u); err != nil {
		return err
	}
	e.log.Info("User connected", "user_id", userID, "conn_id", connID)
	return nil
}

// Enqueue pairs userID with the longest-waiting compatible user, or adds it
// to the pool. A nil session with a nil error means the user is waiting.
func (e *Engine) Enqueue(userID string) (*Session, error) {
	var d deferred
	e.mu.Lock()
	sess, err := e.enqueueLocked(userID, &d)
	e.mu.Unlock()
	e.flush(d)
	return sess, err
}

func (e *Engine) enqueueLocked(userID string, d *deferred) (*Session, error) {
	connID, user, ok := e.registry.Lookup(userID)
	if !ok {
		return nil, ErrNotConnected
	}
	e.supervisor.cancel(userID)

	if _, in := e.registry.CurrentSession(userID); in {
		e.log.Error("Enqueue requested for a user already in session", "user_id", userID)
		return nil, ErrAlreadyInSession
	}
	if e.registry.CurrentPool(userID) {
		return nil, nil
	}

	partner, found := e.matcher.FindMatch(user)
	if !found {
		e.matcher.Add(user)
		e.registry.setWaiting(userID, true)
		d.add(func(j Journal) { j.Queued(userID) })
		e.notify(connID, models.ChatMessage{Type: models.TypeSearching, SenderID: models.SystemSenderID})
		e.log.Debug("User queued", "user_id", userID, "pool_size", e.matcher.Len())
		return nil, nil
	}

	e.registry.setWaiting(partner.ID, false)
	d.add(func(j Journal) { j.Dequeued(partner.ID) })
	return e.createSessionLocked(userID, partner.ID, d)
}

func (e *Engine) createSessionLocked(userA, userB string, d *deferred) (*Session, error) {
	for _, id := range []string{userA, userB} {
		if existing, in := e.registry.CurrentSession(id); in {
			e.log.Error("Refusing to pair a user already in session",
				"user_id", id, "room_id", existing.ID)
			return nil, fmt.Errorf("user %s: %w", id, ErrAlreadyInSession)
		}
	}

	s := newSession(userA, userB, e.clock.Now())
	e.sessions[s.ID] = s
	for _, id := range s.Participants() {
		e.supervisor.cancel(id)
		e.registry.setSession(id, s)
		if connID, _, ok := e.registry.Lookup(id); ok {
			e.notify(connID, models.ChatMessage{
				Type:     models.TypeSessionStarted,
				SenderID: models.SystemSenderID,
				RoomID:   s.ID,
			})
		}
	}

	room := s.room()
	d.add(func(j Journal) { j.RoomOpened(room) })
	e.log.Info("Match found", "room_id", s.ID, "user_a", userA, "user_b", userB)
	return s, nil
}

// Cancel removes userID from the pool and drops any pending requeue.
// It is idempotent.
func (e *Engine) Cancel(userID string) {
	var d deferred
	e.mu.Lock()
	e.supervisor.cancel(userID)
	if e.matcher.Remove(userID) {
		e.registry.setWaiting(userID, false)
		d.add(func(j Journal) { j.Dequeued(userID) })
	}
	e.mu.Unlock()
	e.flush(d)
}

// RelayMessage forwards msg from senderID to its partner unchanged.
func (e *Engine) RelayMessage(senderID string, msg Message) error {
	sess, ok := e.registry.CurrentSession(senderID)
	if !ok {
		return ErrNotInSession
	}
	return sess.relay(senderID, func(partnerID string) error {
		connID, _, ok := e.registry.Lookup(partnerID)
		if !ok {
			return ErrNotInSession
		}
		return relay(e.channel, connID, senderID, sess.ID, msg)
	})
}

// Close ends the session of initiatorID. Both participants are told and
// neither is requeued.
func (e *Engine) Close(initiatorID string) error {
	var d deferred
	e.mu.Lock()
	err := e.closeLocked(initiatorID, &d)
	e.mu.Unlock()
	e.flush(d)
	return err
}

func (e *Engine) closeLocked(initiatorID string, d *deferred) error {
	e.supervisor.cancel(initiatorID)

	sess, in := e.registry.CurrentSession(initiatorID)
	if !in {
		return ErrNotInSession
	}
	e.endSessionLocked(sess, ReasonClosed, d)

	for _, id := range sess.Participants() {
		if connID, _, ok := e.registry.Lookup(id); ok {
			e.notify(connID, models.ChatMessage{
				Type:     models.TypeSessionClosed,
				SenderID: initiatorID,
				RoomID:   sess.ID,
			})
		}
	}
	e.log.Info("Session closed", "room_id", sess.ID, "initiator", initiatorID)
	return nil
}

func (e *Engine) endSessionLocked(sess *Session, reason string, d *deferred) {
	if !sess.markClosed() {
		return
	}
	delete(e.sessions, sess.ID)
	for _, id := range sess.Participants() {
		if cur, ok := e.registry.CurrentSession(id); ok && cur == sess {
			e.registry.setSession(id, nil)
		}
	}
	d.add(func(j Journal) { j.RoomClosed(sess.ID, reason) })
}

// Disconnect tears down everything bound to connID. A partner left behind
// is notified and returned to the pool after the requeue delay.
func (e *Engine) Disconnect(connID string) {
	var d deferred
	e.mu.Lock()
	e.disconnectLocked(connID, &d)
	e.mu.Unlock()
	e.flush(d)
}

func (e *Engine) disconnectLocked(connID string, d *deferred) {
	userID, ok := e.registry.UserOf(connID)
	if !ok {
		return
	}
	e.supervisor.cancel(userID)

	if e.matcher.Remove(userID) {
		e.registry.setWaiting(userID, false)
		d.add(func(j Journal) { j.Dequeued(userID) })
	}

	if sess, in := e.registry.CurrentSession(userID); in {
		partnerID, _ := sess.Partner(userID)
		e.endSessionLocked(sess, ReasonDisconnected, d)

		if partnerConn, _, ok := e.registry.Lookup(partnerID); ok {
			e.notify(partnerConn, models.ChatMessage{
				Type:     models.TypePartnerDisconnected,
				SenderID: models.SystemSenderID,
				RoomID:   sess.ID,
			})
			p := e.supervisor.schedule(partnerID, e.fireRequeue)
			e.log.Info("Partner disconnected, requeue scheduled",
				"room_id", sess.ID, "user_id", partnerID, "fire_at", p.fireAt)
		}
	}

	e.registry.Unbind(connID)
	e.log.Info("User disconnected", "user_id", userID, "conn_id", connID)
}

func (e *Engine) fireRequeue(p *pendingRequeue) {
	var d deferred
	e.mu.Lock()
	if !e.supervisor.claim(p) {
		e.mu.Unlock()
		return
	}

	var err error
	_, _, connected := e.registry.Lookup(p.userID)
	_, inSession := e.registry.CurrentSession(p.userID)
	if connected && !inSession && !e.registry.CurrentPool(p.userID) {
		_, err = e.enqueueLocked(p.userID, &d)
	}
	e.mu.Unlock()
	e.flush(d)

	if err != nil {
		e.log.Warn("Requeue failed", "user_id", p.userID, "error", err)
	}
}

// State reports where userID is in the lifecycle.
func (e *Engine) State(userID string) UserState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, _, ok := e.registry.Lookup(userID); !ok {
		return StateIdle
	}
	switch {
	case e.isInSession(userID):
		return StateInSession
	case e.registry.CurrentPool(userID):
		return StateWaiting
	case e.supervisor.has(userID):
		return StateGraceWindow
	}
	return StateIdle
}

func (e *Engine) isInSession(userID string) bool {
	_, ok := e.registry.CurrentSession(userID)
	return ok
}

// ConnectionOf returns the connection currently bound to userID.
func (e *Engine) ConnectionOf(userID string) (string, bool) {
	connID, _, ok := e.registry.Lookup(userID)
	return connID, ok
}

// Waiting returns the pool in arrival order.
func (e *Engine) Waiting() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matcher.Waiting()
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Connected:       e.registry.Len(),
		Waiting:         e.matcher.Len(),
		Sessions:        len(e.sessions),
		PendingRequeues: e.supervisor.len(),
	}
}

// Shutdown cancels every pending requeue.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.supervisor.stopAll()
}

func (e *Engine) notify(connID string, msg models.ChatMessage) {
	if err := e.channel.Send(connID, msg); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrUnknownConnection) {
			level = slog.LevelDebug
		}
		e.log.Log(context.Background(), level, "Dropped event",
			"conn_id", connID, "type", msg.Type, "error", err)
	}
}
