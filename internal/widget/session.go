package widget

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/booking-widget/internal/booking"
	"github.com/wolfman30/booking-widget/internal/config"
)

// Session is one visitor's booking flow. Events on a session are
// serialized through mu.
type Session struct {
	ID     string
	Widget *config.Widget
	Flow   *booking.Flow

	mu       sync.Mutex
	lastSeen time.Time
}

// SessionGauge receives the live session count.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// Sessions keeps in-memory sessions and expires idle ones.
type Sessions struct {
	mu    sync.Mutex
	items map[string]*Session
	ttl   time.Duration
	now   func() time.Time
	gauge SessionGauge
}

// NewSessions creates a session registry. A zero ttl keeps sessions forever.
func NewSessions(ttl time.Duration, gauge SessionGauge) *Sessions {
	return &Sessions{
		items: make(map[string]*Session),
		ttl:   ttl,
		now:   time.Now,
		gauge: gauge,
	}
}

// Add registers a flow under a fresh session id.
func (s *Sessions) Add(w *config.Widget, flow *booking.Flow) *Session {
	sess := &Session{ID: uuid.NewString(), Widget: w, Flow: flow}
	s.mu.Lock()
	sess.lastSeen = s.now()
	s.items[sess.ID] = sess
	n := len(s.items)
	s.mu.Unlock()
	s.report(n)
	return sess
}

// Get returns a live session and marks it as used.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.items, id)
		s.report(len(s.items))
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

// Remove drops a session.
func (s *Sessions) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	n := len(s.items)
	s.mu.Unlock()
	s.report(n)
	return ok
}

// Len returns the number of sessions held.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes idle sessions and returns how many were dropped.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	now := s.now()
	dropped := 0
	for id, sess := range s.items {
		if s.expired(sess, now) {
			delete(s.items, id)
			dropped++
		}
	}
	n := len(s.items)
	s.mu.Unlock()
	s.report(n)
	return dropped
}

// Run sweeps on every tick until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Sessions) expired(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}

func (s *Sessions) report(n int) {
	if s.gauge != nil {
		s.gauge.SetActiveSessions(n)
	}
}
