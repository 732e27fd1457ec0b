package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

// Session is one customer's selection flow for one combo. The engine is
// only touched under mu.
type Session struct {
	ID      string
	Options catalog.Options

	mu       sync.Mutex
	engine   *combo.Engine
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's engine.
func (s *Session) Do(fn func(e *combo.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.engine)
}

// Pricing is the channel and currency the session was opened with.
func (s *Session) Pricing() combo.Pricing {
	return combo.Pricing{Channel: s.Options.Channel, Currency: s.Options.Currency}
}

// SessionStore holds open sessions in memory. Sessions idle for longer
// than the idle timeout are dropped by Sweep.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	max      int
	now      func() time.Time
}

// NewSessionStore creates a store. max <= 0 means unbounded.
func NewSessionStore(idle time.Duration, max int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		idle:     idle,
		max:      max,
		now:      time.Now,
	}
}

// Create opens a session around engine.
func (st *SessionStore) Create(engine *combo.Engine, opt catalog.Options) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, ErrTooManySessions
	}
	s := &Session{
		ID:       uuid.NewString(),
		Options:  opt,
		engine:   engine,
		lastSeen: st.now(),
	}
	st.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session and marks it as used.
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if st.expired(s, now) {
		delete(st.sessions, id)
		return nil, ErrSessionNotFound
	}
	s.lastSeen = now
	return s, nil
}

// Delete closes a session. It reports whether the session existed.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	_, ok := st.sessions[id]
	delete(st.sessions, id)
	return ok
}

// Len is the number of open sessions, expired ones included until swept.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep drops idle sessions and returns how many were dropped.
func (st *SessionStore) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	n := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (st *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || st.idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				slog.Debug("idle sessions dropped", "count", n)
			}
		}
	}
}

func (st *SessionStore) expired(s *Session, now time.Time) bool {
	return st.idle > 0 && now.Sub(s.lastSeen) > st.idle
}
