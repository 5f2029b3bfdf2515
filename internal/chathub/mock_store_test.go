package chathub_test

import (
	"context"
	"sync"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetPreferences(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) expectUser(id, gender, pref string) {
	m.On("GetPreferences", mock.Anything, id).
		Return(&models.User{ID: id, Age: 25, Gender: gender, PartnerPreferredGender: pref}, nil)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) RoomOpened(room models.ChatRoom) { m.Called(room) }
func (m *MockJournal) RoomClosed(roomID, reason string) { m.Called(roomID, reason) }
func (m *MockJournal) Queued(userID string)             { m.Called(userID) }
func (m *MockJournal) Dequeued(userID string)           { m.Called(userID) }

// recordingChannel is an EventChannel that keeps every event per connection.
type recordingChannel struct {
	mu     sync.Mutex
	events map[string][]models.ChatMessage
	full   map[string]bool
}

func newRecordingChannel() *recordingChannel {
	return &recordingChannel{
		events: make(map[string][]models.ChatMessage),
		full:   make(map[string]bool),
	}
}

func (r *recordingChannel) Send(connID string, msg models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full[connID] {
		return chathub.ErrSendBufferFull
	}
	r.events[connID] = append(r.events[connID], msg)
	return nil
}

func (r *recordingChannel) of(connID string) []models.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChatMessage(nil), r.events[connID]...)
}

func (r *recordingChannel) types(connID string) []string {
	var out []string
	for _, msg := range r.of(connID) {
		out = append(out, msg.Type)
	}
	return out
}

func (r *recordingChannel) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = make(map[string][]models.ChatMessage)
}

// fakeClock fires timers only from Advance.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	timers     []*fakeTimer
	ignoreStop bool
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) chathub.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	// ignoreStop models a timer that already fired when Stop was called.
	if t.clock.ignoreStop || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
