package chathub

import (
	"slices"

	"pairchat/backend/internal/models"

	"github.com/samber/lo"
)

// Compatible reports whether a and b may be paired: each must accept the
// other's gender. The relation is symmetric.
func Compatible(a, b *models.User) bool {
	return a.Accepts(b.Gender) && b.Accepts(a.Gender)
}

// Matcher owns the waiting pool, kept in arrival order.
// It is not safe for concurrent use; the Engine serializes access.
type Matcher struct {
	queue []models.User
}

func NewMatcher() *Matcher {
	return &Matcher{}
}

// Add appends user to the pool. It returns false if the user is already waiting.
func (m *Matcher) Add(user models.User) bool {
	if m.Contains(user.ID) {
		return false
	}
	m.queue = append(m.queue, user)
	return true
}

// Remove drops userID from the pool and reports whether it was there.
func (m *Matcher) Remove(userID string) bool {
	_, idx, ok := lo.FindIndexOf(m.queue, func(u models.User) bool { return u.ID == userID })
	if !ok {
		return false
	}
	m.queue = slices.Delete(m.queue, idx, idx+1)
	return true
}

// FindMatch removes and returns the longest-waiting user compatible with
// user. A user is never matched with themself.
func (m *Matcher) FindMatch(user models.User) (models.User, bool) {
	candidate, idx, ok := lo.FindIndexOf(m.queue, func(c models.User) bool {
		return c.ID != user.ID && Compatible(&user, &c)
	})
	if !ok {
		return models.User{}, false
	}
	m.queue = slices.Delete(m.queue, idx, idx+1)
	return candidate, true
}

func (m *Matcher) Contains(userID string) bool {
	return lo.ContainsBy(m.queue, func(u models.User) bool { return u.ID == userID })
}

func (m *Matcher) Len() int { return len(m.queue) }

// Waiting returns the ids in the pool, oldest first.
func (m *Matcher) Waiting() []string {
	return lo.Map(m.queue, func(u models.User, _ int) string { return u.ID })
}
