package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"ballotguard/pkg/platform/sentinel"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// SQLState extracts the SQLSTATE from a pgx or lib/pq error.
func SQLState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	return "", false
}

// IsUniqueViolation reports whether err is a unique constraint rejection.
func IsUniqueViolation(err error) bool {
	code, ok := SQLState(err)
	return ok && code == codeUniqueViolation
}

// IsRetryable reports serialization failures and deadlocks.
func IsRetryable(err error) bool {
	code, ok := SQLState(err)
	return ok && (code == codeSerializationFailure || code == codeDeadlockDetected)
}

// Classify maps driver errors to sentinel errors, keeping the original in
// the chain. Unknown errors pass through unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return errors.Join(sentinel.ErrAlreadyUsed, err)
	case IsRetryable(err):
		return errors.Join(sentinel.ErrConflict, err)
	default:
		return err
	}
}
