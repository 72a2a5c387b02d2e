// Package lock keeps the reconciler single-instance across processes.
package lock

import (
	"context"
	"database/sql"
	"fmt"
)

// Key is the advisory lock id shared by every ballotguard process.
const Key int64 = 0x62616c6c6f74 // "ballot"

// PostgresLock takes a session-level advisory lock on a pinned connection,
// so the lock lives exactly as long as that connection is held.
type PostgresLock struct {
	db  *sql.DB
	key int64
}

func NewPostgres(db *sql.DB) *PostgresLock {
	return &PostgresLock{db: db, key: Key}
}

// TryLock returns ok=false without waiting when another session holds the
// lock. On success the returned release must be called.
func (l *PostgresLock) TryLock(ctx context.Context) (release func(), ok bool, err error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("pin connection for advisory lock: %w", err)
	}
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&ok); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		conn.Close()
		return nil, false, nil
	}
	return func() {
		// Unlock on a fresh context: the run's context may already be done.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.key)
		conn.Close()
	}, true, nil
}
