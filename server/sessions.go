package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/arghonaut/vm"
)

// Session is one program being driven remotely. Interp must only be
// touched on the worker goroutine.
type Session struct {
	ID      string
	Name    string
	Interp  *vm.Interpreter
	Source  []string
	Created time.Time

	lastUsed time.Time
}

// SessionStore manages runner sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create builds an interpreter for source and registers it as a new session.
func (s *SessionStore) Create(name string, source []string, opts ...vm.Option) *Session {
	return s.Add(name, vm.New(source, opts...), source)
}

// Add registers an existing interpreter as a new session.
func (s *SessionStore) Add(name string, interp *vm.Interpreter, source []string) *Session {
	now := s.now()
	session := &Session{
		ID:       uuid.New().String(),
		Name:     name,
		Interp:   interp,
		Source:   source,
		Created:  now,
		lastUsed: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Infof("created session %s (%s)", session.ID, name)
	return session
}

// Get retrieves a session by ID and marks it as used.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if ok {
		session.lastUsed = s.now()
	}
	return session, ok
}

// Destroy removes a session. It reports whether the session existed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	log.Infof("destroyed session %s", id)
	return true
}

// List returns the IDs of all live sessions, sorted.
func (s *SessionStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions that haven't been accessed within the TTL.
func (s *SessionStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, session := range s.sessions {
		if session.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Infof("swept %d idle sessions", removed)
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *SessionStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
