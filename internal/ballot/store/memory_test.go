package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotguard/internal/ballot/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *InMemoryStoreSuite) ballot(voter id.VoterID, scope id.Scope, at time.Time) *models.Ballot {
	b, err := models.NewBallot(id.NewBallotID(), voter, scope, nil, at)
	s.Require().NoError(err)
	return b
}

func (s *InMemoryStoreSuite) TestInsertIsAtomicPerScope() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())

	const goroutines = 100
	var wg sync.WaitGroup
	var ok, used atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.store.Insert(ctx, s.ballot(voter, scope, time.Now())); {
			case err == nil:
				ok.Add(1)
			case err == sentinel.ErrAlreadyUsed:
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), used.Load())
	s.Equal(1, s.store.Len())
}

func (s *InMemoryStoreSuite) TestFindByScope() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.DepartmentalScope(id.NewElectionID(), id.PositionID(id.NewElectionID()))

	_, err := s.store.FindByScope(ctx, voter, scope)
	s.ErrorIs(err, sentinel.ErrNotFound)

	b := s.ballot(voter, scope, time.Now())
	s.Require().NoError(s.store.Insert(ctx, b))
	found, err := s.store.FindByScope(ctx, voter, scope)
	s.Require().NoError(err)
	s.Equal(b.ID, found.ID)
}

// =============================================================================
// Reconciliation target
// =============================================================================

func (s *InMemoryStoreSuite) TestLegacyDuplicates() {
	ctx := context.Background()
	s.store.DropConstraints()

	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var newest *models.Ballot
	for i := range 3 {
		newest = s.ballot(voter, scope, base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Insert(ctx, newest))
	}
	s.ErrorIs(s.store.InstallConstraints(ctx), sentinel.ErrAlreadyUsed)

	groups, err := s.store.DuplicateGroups(ctx)
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.Equal(models.GroupKey(voter, scope), groups[0].Key)

	keep, remove := groups[0].Partition()
	s.Equal(newest.ID.String(), keep.ID)
	n, err := s.store.DeleteRows(ctx, keep, remove)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	s.Require().NoError(s.store.InstallConstraints(ctx))
	found, err := s.store.FindByScope(ctx, voter, scope)
	s.Require().NoError(err)
	s.Equal(newest.ID, found.ID)
	s.ErrorIs(s.store.Insert(ctx, s.ballot(voter, scope, time.Now())), sentinel.ErrAlreadyUsed)
}
