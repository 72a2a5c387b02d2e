// Package store persists participations and exposes them to the duplicate
// reconciler.
package store

import (
	"context"
	"sync"

	"ballotguard/internal/participation/models"
	rmodels "ballotguard/internal/reconcile/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

// InMemoryStore keeps participations in a slice. The uniqueness constraint
// is modeled explicitly: while it is installed Create rejects a second row
// for the same key; DropConstraints simulates the legacy schema so tests can
// seed duplicates for the reconciler.
type InMemoryStore struct {
	mu          sync.RWMutex
	rows        []*models.Participation
	constrained bool
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{constrained: true}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.constrained {
		key := p.Key()
		for _, existing := range s.rows {
			if existing.Key() == key {
				return sentinel.ErrAlreadyUsed
			}
		}
	}
	stored := *p
	s.rows = append(s.rows, &stored)
	return nil
}

func (s *InMemoryStore) Exists(_ context.Context, voterID id.VoterID, ref id.ElectionRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.GroupKey(voterID, ref)
	for _, p := range s.rows {
		if p.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

// Count returns the number of rows for the key, duplicates included.
func (s *InMemoryStore) Count(voterID id.VoterID, ref id.ElectionRef) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.GroupKey(voterID, ref)
	n := 0
	for _, p := range s.rows {
		if p.Key() == key {
			n++
		}
	}
	return n
}

// DropConstraints removes the uniqueness rule.
func (s *InMemoryStore) DropConstraints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constrained = false
}

func (s *InMemoryStore) Name() string { return "participations" }

func (s *InMemoryStore) DuplicateGroups(_ context.Context) ([]rmodels.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byKey := make(map[string][]rmodels.Row)
	for _, p := range s.rows {
		byKey[p.Key()] = append(byKey[p.Key()], rmodels.Row{ID: p.ID.String(), CreatedAt: p.CreatedAt})
	}
	return rmodels.Duplicates(byKey), nil
}

// DeleteRows removes the listed rows if keep still exists.
func (s *InMemoryStore) DeleteRows(_ context.Context, keep rmodels.Row, remove []rmodels.Row) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		if r.ID != keep.ID {
			drop[r.ID] = true
		}
	}
	kept := false
	for _, p := range s.rows {
		if p.ID.String() == keep.ID {
			kept = true
			break
		}
	}
	if !kept {
		return 0, nil
	}
	var removed int64
	out := s.rows[:0]
	for _, p := range s.rows {
		if drop[p.ID.String()] {
			removed++
			continue
		}
		out = append(out, p)
	}
	s.rows = out
	return removed, nil
}

// InstallConstraints turns the uniqueness rule on. It fails while
// duplicates exist, as a unique index build would.
func (s *InMemoryStore) InstallConstraints(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.rows))
	for _, p := range s.rows {
		if seen[p.Key()] {
			return sentinel.ErrAlreadyUsed
		}
		seen[p.Key()] = true
	}
	s.constrained = true
	return nil
}

func (s *InMemoryStore) ConstraintsInstalled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.constrained, nil
}
