// Package store persists elections.
package store

import (
	"context"
	"sort"
	"sync"

	"ballotguard/internal/election/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

// InMemoryStore keeps elections in a map guarded by a RWMutex. It returns
// copies so callers can never mutate stored state without going through
// CompareAndSwap.
type InMemoryStore struct {
	mu        sync.RWMutex
	elections map[id.ElectionID]*models.Election
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{elections: make(map[id.ElectionID]*models.Election)}
}

func (s *InMemoryStore) Create(_ context.Context, e *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.elections[e.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := *e
	s.elections[e.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, electionID id.ElectionID) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.elections[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *e
	return &out, nil
}

// List returns all elections ordered by date, then creation time.
func (s *InMemoryStore) List(_ context.Context) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Election, 0, len(s.elections))
	for _, e := range s.elections {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CompareAndSwap replaces the stored status and version with updated's if
// the stored version still equals expectedVersion.
func (s *InMemoryStore) CompareAndSwap(_ context.Context, updated *models.Election, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.elections[updated.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	current.Status = updated.Status
	current.Version = updated.Version
	current.UpdatedAt = updated.UpdatedAt
	return nil
}
