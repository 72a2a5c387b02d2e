package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ballotguard/internal/election/models"
	"ballotguard/internal/platform/postgres"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
	txcontext "ballotguard/pkg/platform/tx"
)

// PostgresStore persists elections in the elections table. Status changes
// are compare-and-set on the version column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const electionColumns = `id, election_type, title, department, status, election_date,
	ballot_open_secs, ballot_close_secs, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, e *models.Election) error {
	query := `
		INSERT INTO elections (` + electionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var department sql.NullString
	if e.Department != "" {
		department = sql.NullString{String: e.Department, Valid: true}
	}
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		string(e.Type),
		e.Title,
		department,
		string(e.Status),
		e.Date,
		int64(e.OpenOffset/time.Second),
		int64(e.CloseOffset/time.Second),
		e.Version,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert election: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(electionID))
	e, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find election: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections ORDER BY election_date, created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var out []*models.Election
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elections: %w", err)
	}
	return out, nil
}

// CompareAndSwap writes the new status and version only if the row still
// carries expectedVersion. A missing row is ErrNotFound; a lost race is
// ErrConflict.
func (s *PostgresStore) CompareAndSwap(ctx context.Context, updated *models.Election, expectedVersion int64) error {
	query := `
		UPDATE elections
		SET status = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`
	exec := txcontext.ExecutorFor(ctx, s.db)
	res, err := exec.ExecContext(ctx, query,
		string(updated.Status),
		updated.Version,
		updated.UpdatedAt,
		uuid.UUID(updated.ID),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update election status: %w", postgres.Classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update election status: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM elections WHERE id = $1)`, uuid.UUID(updated.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("check election: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*models.Election, error) {
	var (
		e          models.Election
		rawID      uuid.UUID
		kind       string
		department sql.NullString
		status     string
		openSecs   int64
		closeSecs  int64
	)
	if err := row.Scan(&rawID, &kind, &e.Title, &department, &status, &e.Date,
		&openSecs, &closeSecs, &e.Version, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.ID = id.ElectionID(rawID)
	e.Type = id.ElectionType(kind)
	e.Department = department.String
	e.Status = models.Status(status)
	y, m, d := e.Date.Date()
	e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	e.OpenOffset = time.Duration(openSecs) * time.Second
	e.CloseOffset = time.Duration(closeSecs) * time.Second
	return &e, nil
}
