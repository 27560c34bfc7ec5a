package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secaware-training-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Entries expire
// after ttl so abandoned and completed sessions do not accumulate.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	sessions map[string]storedSession
}

type storedSession struct {
	session   domain.Session
	expiresAt time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]storedSession),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	if _, ok := s.sessions[session.CorrelationID]; ok {
		return fmt.Errorf("%w: %s exists", domain.ErrSessionConflict, session.CorrelationID)
	}
	s.sessions[session.CorrelationID] = s.entry(session)
	return nil
}

func (s *SessionStore) Get(_ context.Context, correlationID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[correlationID]
	if !ok || s.expired(stored) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return stored.session, nil
}

// Save replaces the stored session only if it is the direct predecessor of session.
func (s *SessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.CorrelationID]
	if !ok || s.expired(stored) {
		return domain.ErrSessionNotFound
	}
	if stored.session.Version != session.Version-1 {
		return fmt.Errorf("%w: stored version %d, saving %d", domain.ErrSessionConflict, stored.session.Version, session.Version)
	}
	s.sessions[session.CorrelationID] = s.entry(session)
	return nil
}

// Len reports live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.sessions)
}

func (s *SessionStore) entry(session domain.Session) storedSession {
	e := storedSession{session: session}
	if s.ttl > 0 {
		e.expiresAt = s.clock().Add(s.ttl)
	}
	return e
}

func (s *SessionStore) expired(e storedSession) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(s.clock())
}

func (s *SessionStore) evictLocked() {
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
		}
	}
}
