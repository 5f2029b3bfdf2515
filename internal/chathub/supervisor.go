package chathub

import "time"

// pendingRequeue is a scheduled return to the pool after a partner left.
type pendingRequeue struct {
	userID string
	fireAt time.Time
	timer  Timer
}

// supervisor tracks at most one pending requeue per user.
// All methods are called with the Engine mutex held.
type supervisor struct {
	delay   time.Duration
	clock   Clock
	pending map[string]*pendingRequeue
}

func newSupervisor(clock Clock, delay time.Duration) *supervisor {
	return &supervisor{
		delay:   delay,
		clock:   clock,
		pending: make(map[string]*pendingRequeue),
	}
}

// schedule replaces any pending requeue for userID. fire runs on the timer
// goroutine and must take the Engine mutex before calling claim.
func (s *supervisor) schedule(userID string, fire func(p *pendingRequeue)) *pendingRequeue {
	s.cancel(userID)

	p := &pendingRequeue{userID: userID, fireAt: s.clock.Now().Add(s.delay)}
	s.pending[userID] = p
	p.timer = s.clock.AfterFunc(s.delay, func() { fire(p) })
	return p
}

func (s *supervisor) cancel(userID string) bool {
	p, ok := s.pending[userID]
	if !ok {
		return false
	}
	delete(s.pending, userID)
	if p.timer != nil {
		p.timer.Stop()
	}
	return true
}

// claim consumes p if it is still the live entry for its user. A timer that
// lost the race with a cancel finds a different entry, or none, and is dropped.
func (s *supervisor) claim(p *pendingRequeue) bool {
	cur, ok := s.pending[p.userID]
	if !ok || cur != p {
		return false
	}
	delete(s.pending, p.userID)
	return true
}

func (s *supervisor) has(userID string) bool {
	_, ok := s.pending[userID]
	return ok
}

func (s *supervisor) len() int { return len(s.pending) }

func (s *supervisor) stopAll() {
	for id := range s.pending {
		s.cancel(id)
	}
}
