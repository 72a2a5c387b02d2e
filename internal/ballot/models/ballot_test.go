package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
)

func TestNewBallot(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	voter := id.VoterID(id.NewBallotID())
	scope := id.DepartmentalScope(id.NewElectionID(), id.PositionID(id.NewElectionID()))

	t.Run("whitespace does not change the digest", func(t *testing.T) {
		ballotID := id.NewBallotID()
		a, err := NewBallot(ballotID, voter, scope, json.RawMessage(`{"candidate": "c1"}`), now)
		require.NoError(t, err)
		b, err := NewBallot(ballotID, voter, scope, json.RawMessage(`{"candidate":"c1"}`), now)
		require.NoError(t, err)
		assert.Equal(t, a.Digest, b.Digest)
		assert.Len(t, a.Digest, 64)
		assert.Equal(t, now.Truncate(time.Microsecond), a.CreatedAt)
	})

	t.Run("tampering breaks verification", func(t *testing.T) {
		b, err := NewBallot(id.NewBallotID(), voter, scope, json.RawMessage(`["c1"]`), now)
		require.NoError(t, err)
		assert.True(t, b.Verify())
		b.Selections = json.RawMessage(`["c2"]`)
		assert.False(t, b.Verify())
	})

	t.Run("empty selections", func(t *testing.T) {
		b, err := NewBallot(id.NewBallotID(), voter, scope, nil, now)
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(b.Selections))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := NewBallot(id.NewBallotID(), voter, scope, json.RawMessage(`{"a":`), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("key distinguishes positions", func(t *testing.T) {
		election := id.NewElectionID()
		a := &Ballot{VoterID: voter, Scope: id.DepartmentalScope(election, id.PositionID(id.NewElectionID()))}
		b := &Ballot{VoterID: voter, Scope: id.DepartmentalScope(election, id.PositionID(id.NewElectionID()))}
		assert.NotEqual(t, a.Key(), b.Key())
	})
}
