// Package domain holds identifiers and value types shared by every bounded
// context: typed IDs, election types and ballot scopes.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "ballotguard/pkg/domain-errors"
)

// Typed IDs keep voter, election, position and row identifiers from being
// swapped at compile time.
type (
	VoterID         uuid.UUID
	ElectionID      uuid.UUID
	PositionID      uuid.UUID
	BallotID        uuid.UUID
	ParticipationID uuid.UUID
)

const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

// ParseVoterID parses a voter identifier received at a trust boundary.
func ParseVoterID(s string) (VoterID, error) {
	u, err := parseUUID("voter id", s)
	return VoterID(u), err
}

func ParseElectionID(s string) (ElectionID, error) {
	u, err := parseUUID("election id", s)
	return ElectionID(u), err
}

func ParsePositionID(s string) (PositionID, error) {
	u, err := parseUUID("position id", s)
	return PositionID(u), err
}

func ParseBallotID(s string) (BallotID, error) {
	u, err := parseUUID("ballot id", s)
	return BallotID(u), err
}

func ParseParticipationID(s string) (ParticipationID, error) {
	u, err := parseUUID("participation id", s)
	return ParticipationID(u), err
}

func (id VoterID) String() string         { return uuid.UUID(id).String() }
func (id ElectionID) String() string      { return uuid.UUID(id).String() }
func (id PositionID) String() string      { return uuid.UUID(id).String() }
func (id BallotID) String() string        { return uuid.UUID(id).String() }
func (id ParticipationID) String() string { return uuid.UUID(id).String() }

func (id VoterID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ElectionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PositionID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id BallotID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ParticipationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs appear as plain UUID strings in JSON.
func (id VoterID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id ElectionID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PositionID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id BallotID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ParticipationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *VoterID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ElectionID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PositionID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *BallotID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ParticipationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewBallotID allocates a random ballot identifier.
func NewBallotID() BallotID { return BallotID(uuid.New()) }

func NewParticipationID() ParticipationID { return ParticipationID(uuid.New()) }

func NewElectionID() ElectionID { return ElectionID(uuid.New()) }
