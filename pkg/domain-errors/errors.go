// Package domainerrors defines coded errors that services return to callers.
//
// Stores return sentinel errors (see pkg/platform/sentinel); services translate
// them into a coded Error so transports can map them without string matching.
package domainerrors

import "errors"

// Code classifies an error for callers and transports.
type Code string

// Generic codes.
const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeRateLimited        Code = "rate_limited"
	CodeInternal           Code = "internal_error"
)

// Ballot casting codes. These are user-actionable outcomes, not faults.
const (
	CodeAlreadyVoted           Code = "already_voted"
	CodeInvalidScope           Code = "invalid_scope"
	CodeMissingPositionScope   Code = "missing_position_scope"
	CodeScopeMismatch          Code = "scope_mismatch"
	CodeNotEligible            Code = "not_eligible"
	CodeElectionClosed         Code = "election_closed"
	CodeInvalidTransition      Code = "invalid_transition"
	CodeDuplicateParticipation Code = "duplicate_participation"
	CodeStorageConflict        Code = "storage_conflict"
	CodeReconciliationFailure  Code = "reconciliation_failure"
)

// OTP gate codes.
const (
	CodeOTPRequired        Code = "otp_required"
	CodeOTPExpired         Code = "otp_expired"
	CodeOTPMismatch        Code = "otp_mismatch"
	CodeOTPAlreadyConsumed Code = "otp_already_consumed"
	CodeOTPRateLimited     Code = "otp_rate_limited"
)

// Error carries a Code, a caller-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to err. A nil err yields a plain coded error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost coded error in the chain carries code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
