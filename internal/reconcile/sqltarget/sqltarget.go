// Package sqltarget holds the Postgres plumbing shared by reconcilable
// stores: reading duplicate groups and reinstalling partial unique indexes.
package sqltarget

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"ballotguard/internal/platform/postgres"
	rmodels "ballotguard/internal/reconcile/models"
	txcontext "ballotguard/pkg/platform/tx"
)

// InstallConstraints runs the drop-and-create statements in one
// transaction. DROP INDEX takes an exclusive table lock, so concurrent
// inserts wait for the new index instead of slipping through between drop
// and create. A failing CREATE rolls back and leaves the old index in place.
func InstallConstraints(ctx context.Context, db *sql.DB, statements []string) error {
	return txcontext.RunInTx(ctx, db, nil, func(ctx context.Context) error {
		exec := txcontext.ExecutorFor(ctx, db)
		for _, stmt := range statements {
			if _, err := exec.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("install constraint: %w", postgres.Classify(err))
			}
		}
		return nil
	})
}

// ConstraintsInstalled reports whether every named index exists and is
// valid in the current schema.
func ConstraintsInstalled(ctx context.Context, db *sql.DB, indexes []string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indexrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = current_schema()
		  AND c.relname = ANY($1)
		  AND i.indisunique
		  AND i.indisvalid
	`
	var n int
	if err := db.QueryRowContext(ctx, query, pq.Array(indexes)).Scan(&n); err != nil {
		return false, fmt.Errorf("check constraints: %w", err)
	}
	return n == len(indexes), nil
}

// QueryGroups reads (group_key, id, created_at) rows ordered by group_key
// and folds consecutive rows into groups.
func QueryGroups(ctx context.Context, db *sql.DB, query string) ([]rmodels.Group, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query duplicate groups: %w", err)
	}
	defer rows.Close()

	var groups []rmodels.Group
	for rows.Next() {
		var (
			key string
			row rmodels.Row
		)
		if err := rows.Scan(&key, &row.ID, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan duplicate row: %w", err)
		}
		if n := len(groups); n == 0 || groups[n-1].Key != key {
			groups = append(groups, rmodels.Group{Key: key})
		}
		groups[len(groups)-1].Rows = append(groups[len(groups)-1].Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate rows: %w", err)
	}
	return groups, nil
}
