package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotguard/internal/otp/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	voter := id.VoterID(id.NewBallotID())
	scope := id.DepartmentalScope(id.NewElectionID(), id.PositionID(id.NewElectionID()))

	_, err := s.Find(ctx, voter, scope)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	session := models.NewSession(voter, scope, []byte("hash"), time.Now(), time.Minute)
	require.NoError(t, s.Save(ctx, session, time.Minute))

	t.Run("update returns fn error and persists mutation", func(t *testing.T) {
		out, err := s.Update(ctx, voter, scope, func(s *models.Session) error {
			s.Attempts++
			return sentinel.ErrMismatch
		})
		assert.ErrorIs(t, err, sentinel.ErrMismatch)
		assert.Equal(t, 1, out.Attempts)

		found, err := s.Find(ctx, voter, scope)
		require.NoError(t, err)
		assert.Equal(t, 1, found.Attempts)
	})

	t.Run("save replaces the previous session", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, models.NewSession(voter, scope, []byte("other"), time.Now(), time.Minute), time.Minute))
		found, err := s.Find(ctx, voter, scope)
		require.NoError(t, err)
		assert.Zero(t, found.Attempts)
		assert.Equal(t, []byte("other"), found.CodeHash)
	})

	t.Run("retention elapses", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, session, -time.Second))
		_, err := s.Update(ctx, voter, scope, func(*models.Session) error { return nil })
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
