// Package models holds the OTP session state machine.
//
//	issued -> consumed -> spent
//	issued -> expired
//
// A session is keyed by (voter, scope). Issuing a new code replaces the
// session, so at most one live code exists per key.
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

type State string

const (
	StateIssued   State = "issued"
	StateConsumed State = "consumed"
	StateSpent    State = "spent"
	StateExpired  State = "expired"
)

type Session struct {
	VoterID    id.VoterID  `json:"voter_id"`
	Scope      id.Scope    `json:"scope"`
	CodeHash   []byte      `json:"code_hash"`
	State      State       `json:"state"`
	Attempts   int         `json:"attempts"`
	IssuedAt   time.Time   `json:"issued_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	ConsumedAt time.Time   `json:"consumed_at,omitzero"`
	SpentAt    time.Time   `json:"spent_at,omitzero"`
	BallotID   id.BallotID `json:"ballot_id,omitzero"`
}

// Key identifies the session of a voter for one scope.
func Key(voterID id.VoterID, scope id.Scope) string {
	return voterID.String() + "|" + scope.Key()
}

func (s *Session) Key() string { return Key(s.VoterID, s.Scope) }

// NewSession builds an issued session for the hashed code.
func NewSession(voterID id.VoterID, scope id.Scope, codeHash []byte, now time.Time, ttl time.Duration) *Session {
	return &Session{
		VoterID:   voterID,
		Scope:     scope,
		CodeHash:  codeHash,
		State:     StateIssued,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Verify checks code against the session and advances the state machine.
// The session is mutated on every outcome except AlreadyUsed, and callers
// persist it either way so that failed attempts are counted.
//
// Errors:
//   - sentinel.ErrAlreadyUsed: the code was already consumed or spent
//   - sentinel.ErrExpired: past ExpiresAt, or burned by too many attempts
//   - sentinel.ErrMismatch: wrong code
func (s *Session) Verify(code string, now time.Time, maxAttempts int) error {
	switch s.State {
	case StateConsumed, StateSpent:
		return sentinel.ErrAlreadyUsed
	case StateExpired:
		return sentinel.ErrExpired
	}
	if now.After(s.ExpiresAt) {
		s.State = StateExpired
		return sentinel.ErrExpired
	}
	if bcrypt.CompareHashAndPassword(s.CodeHash, []byte(code)) != nil {
		s.Attempts++
		if maxAttempts > 0 && s.Attempts >= maxAttempts {
			s.State = StateExpired
		}
		return sentinel.ErrMismatch
	}
	s.State = StateConsumed
	s.ConsumedAt = now
	return nil
}

// FreshAt reports whether the session is a consumed code verified no more
// than window before now.
func (s *Session) FreshAt(now time.Time, window time.Duration) bool {
	return s.State == StateConsumed && !now.After(s.ConsumedAt.Add(window))
}

// Spend records that the consumed code gated a successful cast.
func (s *Session) Spend(ballotID id.BallotID, now time.Time) error {
	if s.State != StateConsumed {
		return sentinel.ErrInvalidState
	}
	s.State = StateSpent
	s.SpentAt = now
	s.BallotID = ballotID
	return nil
}

// Retention is how long a session must outlive its issue time: the code TTL
// plus the window in which a verified code can still gate a cast.
func Retention(ttl, freshWindow time.Duration) time.Duration {
	return ttl + freshWindow
}
