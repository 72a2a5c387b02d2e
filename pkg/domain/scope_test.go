package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ballotguard/pkg/domain-errors"
)

func TestParseScope(t *testing.T) {
	election := uuid.NewString()
	position := uuid.NewString()

	t.Run("ssg election without position", func(t *testing.T) {
		scope, err := ParseScope(election, "", "")
		require.NoError(t, err)
		assert.Equal(t, ElectionTypeSSG, scope.Kind())
		_, hasPosition := scope.Position()
		assert.False(t, hasPosition)
	})

	t.Run("departmental election with position", func(t *testing.T) {
		scope, err := ParseScope("", election, position)
		require.NoError(t, err)
		assert.Equal(t, ElectionTypeDepartmental, scope.Kind())
		pos, ok := scope.Position()
		require.True(t, ok)
		assert.Equal(t, position, pos.String())
	})

	t.Run("departmental election without position", func(t *testing.T) {
		_, err := ParseScope("", election, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingPositionScope))
	})

	t.Run("ssg election with position", func(t *testing.T) {
		_, err := ParseScope(election, "", position)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeMismatch))
	})

	t.Run("both election references", func(t *testing.T) {
		_, err := ParseScope(election, uuid.NewString(), position)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeMismatch))
	})

	t.Run("no election reference", func(t *testing.T) {
		_, err := ParseScope("", "", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidScope))
	})

	t.Run("malformed election id", func(t *testing.T) {
		_, err := ParseScope("not-a-uuid", "", "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestScopeKeys(t *testing.T) {
	electionID := NewElectionID()
	positionA := PositionID(uuid.New())
	positionB := PositionID(uuid.New())

	t.Run("positions of one departmental election are distinct scopes", func(t *testing.T) {
		a := DepartmentalScope(electionID, positionA)
		b := DepartmentalScope(electionID, positionB)
		assert.NotEqual(t, a.Key(), b.Key())
		assert.Equal(t, a.ElectionRef(), b.ElectionRef())
	})

	t.Run("ssg and departmental scopes never collide", func(t *testing.T) {
		assert.NotEqual(t, SSGScope(electionID).Key(), DepartmentalScope(electionID, positionA).Key())
	})

	t.Run("key round-trips", func(t *testing.T) {
		for _, scope := range []Scope{SSGScope(electionID), DepartmentalScope(electionID, positionA)} {
			parsed, err := ParseScopeKey(scope.Key())
			require.NoError(t, err)
			assert.Equal(t, scope, parsed)
		}
	})

	t.Run("zero scope fails validation", func(t *testing.T) {
		err := Scope{}.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidScope))
	})

	t.Run("departmental scope with nil position fails validation", func(t *testing.T) {
		err := DepartmentalScope(electionID, PositionID{}).Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingPositionScope))
	})
}

func TestScopeJSON(t *testing.T) {
	electionID := NewElectionID()
	positionID := PositionID(uuid.New())

	t.Run("departmental scope uses the portal field names", func(t *testing.T) {
		raw, err := json.Marshal(DepartmentalScope(electionID, positionID))
		require.NoError(t, err)

		var fields map[string]string
		require.NoError(t, json.Unmarshal(raw, &fields))
		assert.Equal(t, electionID.String(), fields["dept_election_id"])
		assert.Equal(t, positionID.String(), fields["current_position_id"])
		assert.NotContains(t, fields, "ssg_election_id")
	})

	t.Run("unmarshal applies discrimination rules", func(t *testing.T) {
		var scope Scope
		err := json.Unmarshal([]byte(`{"dept_election_id":"`+electionID.String()+`"}`), &scope)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingPositionScope))
	})
}
