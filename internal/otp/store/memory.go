// Package store persists OTP sessions.
package store

import (
	"context"
	"sync"
	"time"

	"ballotguard/internal/otp/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

type entry struct {
	session  models.Session
	deadline time.Time
}

// InMemoryStore keeps sessions in a map; entries vanish after their
// retention, measured on the wall clock.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]entry)}
}

// Save replaces any session for the same key.
func (s *InMemoryStore) Save(_ context.Context, session *models.Session, retention time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key()] = entry{session: *session, deadline: time.Now().Add(retention)}
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, voterID id.VoterID, scope id.Scope) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(models.Key(voterID, scope))
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := e.session
	return &out, nil
}

// Update applies fn to the stored session under the store lock and saves
// the result, keeping the original retention. fn's error is returned with
// the updated session.
func (s *InMemoryStore) Update(_ context.Context, voterID id.VoterID, scope id.Scope, fn func(*models.Session) error) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.Key(voterID, scope)
	e, ok := s.live(key)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	fnErr := fn(&e.session)
	s.sessions[key] = e
	out := e.session
	return &out, fnErr
}

func (s *InMemoryStore) live(key string) (entry, bool) {
	e, ok := s.sessions[key]
	if !ok {
		return entry{}, false
	}
	if time.Now().After(e.deadline) {
		delete(s.sessions, key)
		return entry{}, false
	}
	return e, true
}
