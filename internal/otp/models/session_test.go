package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

func newSession(t *testing.T, code string, now time.Time) *Session {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	require.NoError(t, err)
	return NewSession(id.VoterID(id.NewBallotID()), id.SSGScope(id.NewElectionID()), hash, now, 5*time.Minute)
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("correct code consumes once", func(t *testing.T) {
		s := newSession(t, "123456", now)
		require.NoError(t, s.Verify("123456", now.Add(time.Minute), 3))
		assert.Equal(t, StateConsumed, s.State)
		assert.Equal(t, now.Add(time.Minute), s.ConsumedAt)

		assert.ErrorIs(t, s.Verify("123456", now.Add(2*time.Minute), 3), sentinel.ErrAlreadyUsed)
	})

	t.Run("correct code after expiry is expired", func(t *testing.T) {
		s := newSession(t, "123456", now)
		assert.ErrorIs(t, s.Verify("123456", now.Add(5*time.Minute+time.Second), 3), sentinel.ErrExpired)
		assert.Equal(t, StateExpired, s.State)
	})

	t.Run("expiry boundary is inclusive", func(t *testing.T) {
		s := newSession(t, "123456", now)
		assert.NoError(t, s.Verify("123456", now.Add(5*time.Minute), 3))
	})

	t.Run("mismatches burn the code", func(t *testing.T) {
		s := newSession(t, "123456", now)
		assert.ErrorIs(t, s.Verify("000000", now, 2), sentinel.ErrMismatch)
		assert.Equal(t, StateIssued, s.State)
		assert.ErrorIs(t, s.Verify("000000", now, 2), sentinel.ErrMismatch)
		assert.Equal(t, StateExpired, s.State)
		assert.ErrorIs(t, s.Verify("123456", now, 2), sentinel.ErrExpired)
	})
}

func TestFreshAndSpend(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := newSession(t, "4242", now)
	assert.False(t, s.FreshAt(now, time.Minute), "issued code is not fresh")
	assert.ErrorIs(t, s.Spend(id.NewBallotID(), now), sentinel.ErrInvalidState)

	require.NoError(t, s.Verify("4242", now, 3))
	assert.True(t, s.FreshAt(now.Add(time.Minute), time.Minute))
	assert.False(t, s.FreshAt(now.Add(time.Minute+time.Nanosecond), time.Minute))

	ballotID := id.NewBallotID()
	require.NoError(t, s.Spend(ballotID, now))
	assert.Equal(t, StateSpent, s.State)
	assert.Equal(t, ballotID, s.BallotID)
	assert.False(t, s.FreshAt(now, time.Minute))
	assert.ErrorIs(t, s.Spend(ballotID, now), sentinel.ErrInvalidState)
}
