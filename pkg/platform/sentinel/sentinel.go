package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: row or key does not exist
//   - ErrAlreadyUsed: a uniqueness constraint rejected the write, or a
//     single-use resource (OTP code) was already consumed
//   - ErrConflict: the storage engine aborted the write (serialization
//     failure, deadlock, lost optimistic update); retrying is safe
//   - ErrExpired: a time-bound resource is past its expiry
//   - ErrMismatch: a presented secret did not match
//   - ErrInvalidState: the row is in the wrong state for the operation
//   - ErrUnavailable: a dependency is temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrMismatch     = errors.New("mismatch")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
