package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ballotguard/internal/ballot/models"
	"ballotguard/internal/platform/postgres"
	rmodels "ballotguard/internal/reconcile/models"
	"ballotguard/internal/reconcile/sqltarget"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
	txcontext "ballotguard/pkg/platform/tx"
)

// PostgresStore writes ballots with a single constrained INSERT. The
// partial unique indexes ballots_voter_ssg_uniq and
// ballots_voter_dept_position_uniq decide which of several concurrent
// writers wins; the application never reads before writing.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type scopeColumns struct {
	ssg, dept, position uuid.NullUUID
}

func columnsFor(scope id.Scope) scopeColumns {
	var c scopeColumns
	election := uuid.NullUUID{UUID: uuid.UUID(scope.Election()), Valid: true}
	if position, ok := scope.Position(); ok {
		c.dept = election
		c.position = uuid.NullUUID{UUID: uuid.UUID(position), Valid: true}
		return c
	}
	c.ssg = election
	return c
}

func (c scopeColumns) scope() (id.Scope, error) {
	switch {
	case c.ssg.Valid && !c.dept.Valid && !c.position.Valid:
		return id.SSGScope(id.ElectionID(c.ssg.UUID)), nil
	case c.dept.Valid && c.position.Valid && !c.ssg.Valid:
		return id.DepartmentalScope(id.ElectionID(c.dept.UUID), id.PositionID(c.position.UUID)), nil
	default:
		return id.Scope{}, fmt.Errorf("ballot row has an inconsistent scope: %w", sentinel.ErrInvalidState)
	}
}

// Insert stores the ballot. ON CONFLICT DO NOTHING turns a lost race into
// zero returned rows, reported as sentinel.ErrAlreadyUsed; a unique
// violation raised any other way is classified the same.
func (s *PostgresStore) Insert(ctx context.Context, b *models.Ballot) error {
	cols := columnsFor(b.Scope)
	query := `
		INSERT INTO ballots (id, voter_id, ssg_election_id, dept_election_id, current_position_id, selections, digest, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
		RETURNING id
	`
	var inserted uuid.UUID
	err := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(b.ID), uuid.UUID(b.VoterID), cols.ssg, cols.dept, cols.position,
		string(b.Selections), b.Digest, b.CreatedAt,
	).Scan(&inserted)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert ballot: %w", postgres.Classify(err))
	}
	return nil
}

// FindByScope returns the newest ballot for the voter and scope.
func (s *PostgresStore) FindByScope(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Ballot, error) {
	cols := columnsFor(scope)
	query := `
		SELECT id, voter_id, ssg_election_id, dept_election_id, current_position_id, selections, digest, created_at
		FROM ballots
		WHERE voter_id = $1
		  AND ssg_election_id IS NOT DISTINCT FROM $2
		  AND dept_election_id IS NOT DISTINCT FROM $3
		  AND current_position_id IS NOT DISTINCT FROM $4
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	row := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query,
		uuid.UUID(voterID), cols.ssg, cols.dept, cols.position)

	var (
		b          models.Ballot
		ballotID   uuid.UUID
		voter      uuid.UUID
		selections []byte
		found      scopeColumns
	)
	err := row.Scan(&ballotID, &voter, &found.ssg, &found.dept, &found.position, &selections, &b.Digest, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ballot: %w", err)
	}
	if b.Scope, err = found.scope(); err != nil {
		return nil, err
	}
	b.ID = id.BallotID(ballotID)
	b.VoterID = id.VoterID(voter)
	b.Selections = selections
	return &b, nil
}

func (s *PostgresStore) Name() string { return "ballots" }

// DuplicateGroups lists every ballot whose (voter, scope) key occurs more
// than once. Group keys match models.Ballot.Key.
func (s *PostgresStore) DuplicateGroups(ctx context.Context) ([]rmodels.Group, error) {
	query := `
		SELECT group_key, id, created_at FROM (
			SELECT
				voter_id::text || '/' || CASE
					WHEN ssg_election_id IS NOT NULL THEN 'ssg:' || ssg_election_id::text
					ELSE 'departmental:' || dept_election_id::text || ':' || current_position_id::text
				END AS group_key,
				id::text AS id,
				created_at,
				COUNT(*) OVER (PARTITION BY voter_id, ssg_election_id, dept_election_id, current_position_id) AS n
			FROM ballots
		) t
		WHERE n > 1
		ORDER BY group_key, created_at, id
	`
	return sqltarget.QueryGroups(ctx, s.db, query)
}

// DeleteRows deletes exactly the listed rows, and only while keep exists,
// so a group can never be emptied.
func (s *PostgresStore) DeleteRows(ctx context.Context, keep rmodels.Row, remove []rmodels.Row) (int64, error) {
	query := `
		DELETE FROM ballots
		WHERE id::text = ANY($1)
		  AND id::text <> $2
		  AND EXISTS (SELECT 1 FROM ballots k WHERE k.id::text = $2)
	`
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query, pq.Array(rmodels.RemovalIDs(remove)), keep.ID)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate ballots: %w", postgres.Classify(err))
	}
	return res.RowsAffected()
}

var ballotConstraints = []string{
	`DROP INDEX IF EXISTS ballots_voter_ssg_uniq`,
	`CREATE UNIQUE INDEX ballots_voter_ssg_uniq
		ON ballots (voter_id, ssg_election_id)
		WHERE ssg_election_id IS NOT NULL`,
	`DROP INDEX IF EXISTS ballots_voter_dept_position_uniq`,
	`CREATE UNIQUE INDEX ballots_voter_dept_position_uniq
		ON ballots (voter_id, dept_election_id, current_position_id)
		WHERE dept_election_id IS NOT NULL`,
}

func (s *PostgresStore) InstallConstraints(ctx context.Context) error {
	return sqltarget.InstallConstraints(ctx, s.db, ballotConstraints)
}

func (s *PostgresStore) ConstraintsInstalled(ctx context.Context) (bool, error) {
	return sqltarget.ConstraintsInstalled(ctx, s.db, []string{"ballots_voter_ssg_uniq", "ballots_voter_dept_position_uniq"})
}
