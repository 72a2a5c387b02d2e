// Package store is the append-only ballot record. Both implementations make
// the uniqueness check and the insert one atomic step.
package store

import (
	"context"
	"sync"

	"ballotguard/internal/ballot/models"
	rmodels "ballotguard/internal/reconcile/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

// InMemoryStore holds ballots under one mutex. While the constraint is
// installed, Insert checks and appends inside the same critical section;
// DropConstraints reproduces the legacy schema so duplicates can be seeded.
type InMemoryStore struct {
	mu          sync.RWMutex
	rows        []*models.Ballot
	byKey       map[string]*models.Ballot
	constrained bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{byKey: make(map[string]*models.Ballot), constrained: true}
}

// Insert stores the ballot, or returns sentinel.ErrAlreadyUsed when a
// ballot for the same voter and scope exists.
func (s *InMemoryStore) Insert(ctx context.Context, b *models.Ballot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := b.Key()
	if s.constrained {
		if _, exists := s.byKey[key]; exists {
			return sentinel.ErrAlreadyUsed
		}
	}
	stored := *b
	s.rows = append(s.rows, &stored)
	s.byKey[key] = &stored
	return nil
}

func (s *InMemoryStore) FindByScope(_ context.Context, voterID id.VoterID, scope id.Scope) (*models.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.byKey[models.GroupKey(voterID, scope)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *b
	return &out, nil
}

// Count returns the number of rows for the key, duplicates included.
func (s *InMemoryStore) Count(voterID id.VoterID, scope id.Scope) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.GroupKey(voterID, scope)
	n := 0
	for _, b := range s.rows {
		if b.Key() == key {
			n++
		}
	}
	return n
}

// Len returns the total number of rows.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// DropConstraints removes the uniqueness rule.
func (s *InMemoryStore) DropConstraints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constrained = false
}

func (s *InMemoryStore) Name() string { return "ballots" }

func (s *InMemoryStore) DuplicateGroups(_ context.Context) ([]rmodels.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byKey := make(map[string][]rmodels.Row)
	for _, b := range s.rows {
		byKey[b.Key()] = append(byKey[b.Key()], rmodels.Row{ID: b.ID.String(), CreatedAt: b.CreatedAt})
	}
	return rmodels.Duplicates(byKey), nil
}

// DeleteRows removes the listed rows if keep still exists.
func (s *InMemoryStore) DeleteRows(_ context.Context, keep rmodels.Row, remove []rmodels.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept *models.Ballot
	for _, b := range s.rows {
		if b.ID.String() == keep.ID {
			kept = b
			break
		}
	}
	if kept == nil {
		return 0, nil
	}
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		if r.ID != keep.ID {
			drop[r.ID] = true
		}
	}
	var removed int64
	out := s.rows[:0]
	for _, b := range s.rows {
		if drop[b.ID.String()] {
			removed++
			continue
		}
		out = append(out, b)
	}
	s.rows = out
	s.byKey[kept.Key()] = kept
	return removed, nil
}

// InstallConstraints turns the uniqueness rule on. It fails while
// duplicates exist, as a unique index build would.
func (s *InMemoryStore) InstallConstraints(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.rows))
	for _, b := range s.rows {
		if seen[b.Key()] {
			return sentinel.ErrAlreadyUsed
		}
		seen[b.Key()] = true
	}
	s.constrained = true
	return nil
}

func (s *InMemoryStore) ConstraintsInstalled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.constrained, nil
}
