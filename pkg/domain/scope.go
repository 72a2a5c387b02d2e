package domain

import (
	"encoding/json"
	"strings"

	dErrors "ballotguard/pkg/domain-errors"
)

// Scope is the uniqueness boundary of a ballot: one SSG election, or one
// position within one departmental election. It is a tagged variant; the
// fields are unexported so callers go through SSGScope, DepartmentalScope or
// ParseScope and can never build an SSG scope that carries a position.
type Scope struct {
	kind     ElectionType
	election ElectionID
	position PositionID
}

// SSGScope scopes a ballot to a student-government election.
func SSGScope(election ElectionID) Scope {
	return Scope{kind: ElectionTypeSSG, election: election}
}

// DepartmentalScope scopes a ballot to one position of a departmental election.
func DepartmentalScope(election ElectionID, position PositionID) Scope {
	return Scope{kind: ElectionTypeDepartmental, election: election, position: position}
}

// ParseScope builds a Scope from the two mutually exclusive election
// references and the optional position received from a client.
//
// Errors:
//   - CodeMissingPositionScope: departmental election without a position
//   - CodeScopeMismatch: SSG election with a position, or both election ids set
//   - CodeInvalidScope: no election reference at all
//   - CodeInvalidInput: malformed identifiers
func ParseScope(ssgElectionID, deptElectionID, positionID string) (Scope, error) {
	ssg := strings.TrimSpace(ssgElectionID)
	dept := strings.TrimSpace(deptElectionID)
	pos := strings.TrimSpace(positionID)

	switch {
	case ssg != "" && dept != "":
		return Scope{}, dErrors.New(dErrors.CodeScopeMismatch, "ballot cannot reference both an ssg and a departmental election")
	case ssg != "":
		if pos != "" {
			return Scope{}, dErrors.New(dErrors.CodeScopeMismatch, "ssg ballots must not carry a position")
		}
		electionID, err := ParseElectionID(ssg)
		if err != nil {
			return Scope{}, err
		}
		return SSGScope(electionID), nil
	case dept != "":
		if pos == "" {
			return Scope{}, dErrors.New(dErrors.CodeMissingPositionScope, "departmental ballots require current_position_id")
		}
		electionID, err := ParseElectionID(dept)
		if err != nil {
			return Scope{}, err
		}
		positionID, err := ParsePositionID(pos)
		if err != nil {
			return Scope{}, err
		}
		return DepartmentalScope(electionID, positionID), nil
	default:
		return Scope{}, dErrors.New(dErrors.CodeInvalidScope, "an election reference is required")
	}
}

// Validate reports whether the scope is complete.
func (s Scope) Validate() error {
	switch s.kind {
	case ElectionTypeSSG:
		if s.election.IsNil() {
			return dErrors.New(dErrors.CodeInvalidScope, "ssg election id is required")
		}
		if !s.position.IsNil() {
			return dErrors.New(dErrors.CodeScopeMismatch, "ssg ballots must not carry a position")
		}
	case ElectionTypeDepartmental:
		if s.election.IsNil() {
			return dErrors.New(dErrors.CodeInvalidScope, "departmental election id is required")
		}
		if s.position.IsNil() {
			return dErrors.New(dErrors.CodeMissingPositionScope, "departmental ballots require current_position_id")
		}
	default:
		return dErrors.New(dErrors.CodeInvalidScope, "an election reference is required")
	}
	return nil
}

func (s Scope) Kind() ElectionType   { return s.kind }
func (s Scope) Election() ElectionID { return s.election }
func (s Scope) IsZero() bool         { return s == Scope{} }

// Position returns the position of a departmental scope.
func (s Scope) Position() (PositionID, bool) {
	if s.kind != ElectionTypeDepartmental {
		return PositionID{}, false
	}
	return s.position, true
}

// ElectionRef drops the position: participation and eligibility are per
// election, ballots are per position.
func (s Scope) ElectionRef() ElectionRef {
	return ElectionRef{Type: s.kind, ID: s.election}
}

// Key is the canonical string form, stable across processes.
func (s Scope) Key() string {
	if s.kind == ElectionTypeDepartmental {
		return string(s.kind) + ":" + s.election.String() + ":" + s.position.String()
	}
	return string(s.kind) + ":" + s.election.String()
}

func (s Scope) String() string { return s.Key() }

// ParseScopeKey is the inverse of Key.
func ParseScopeKey(key string) (Scope, error) {
	parts := strings.Split(key, ":")
	switch {
	case len(parts) == 2 && parts[0] == string(ElectionTypeSSG):
		return ParseScope(parts[1], "", "")
	case len(parts) == 3 && parts[0] == string(ElectionTypeDepartmental):
		return ParseScope("", parts[1], parts[2])
	default:
		return Scope{}, dErrors.New(dErrors.CodeInvalidScope, "malformed scope key")
	}
}

type scopeJSON struct {
	SSGElectionID     string `json:"ssg_election_id,omitempty"`
	DeptElectionID    string `json:"dept_election_id,omitempty"`
	CurrentPositionID string `json:"current_position_id,omitempty"`
}

// MarshalJSON renders the scope in the two-optional-fields wire shape the
// portal uses.
func (s Scope) MarshalJSON() ([]byte, error) {
	var out scopeJSON
	switch s.kind {
	case ElectionTypeSSG:
		out.SSGElectionID = s.election.String()
	case ElectionTypeDepartmental:
		out.DeptElectionID = s.election.String()
		out.CurrentPositionID = s.position.String()
	}
	return json.Marshal(out)
}

func (s *Scope) UnmarshalJSON(data []byte) error {
	var in scopeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return dErrors.New(dErrors.CodeInvalidScope, "malformed scope")
	}
	parsed, err := ParseScope(in.SSGElectionID, in.DeptElectionID, in.CurrentPositionID)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ElectionRef identifies one election together with its type. It is the
// participation (eligibility) scope.
type ElectionRef struct {
	Type ElectionType
	ID   ElectionID
}

func (r ElectionRef) Key() string {
	return string(r.Type) + ":" + r.ID.String()
}

// Validate reports whether the reference names a typed, non-nil election.
func (r ElectionRef) Validate() error {
	if !r.Type.IsValid() {
		return dErrors.New(dErrors.CodeInvalidScope, "election type must be ssg or departmental")
	}
	if r.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidScope, "election id is required")
	}
	return nil
}
