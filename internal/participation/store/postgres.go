package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ballotguard/internal/participation/models"
	"ballotguard/internal/platform/postgres"
	rmodels "ballotguard/internal/reconcile/models"
	"ballotguard/internal/reconcile/sqltarget"
	id "ballotguard/pkg/domain"
	txcontext "ballotguard/pkg/platform/tx"
)

// PostgresStore persists participations. Uniqueness is enforced by two
// partial unique indexes, one per election-reference column, installed by
// InstallConstraints.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func electionColumns(ref id.ElectionRef) (ssg, dept uuid.NullUUID) {
	if ref.Type == id.ElectionTypeSSG {
		return uuid.NullUUID{UUID: uuid.UUID(ref.ID), Valid: true}, uuid.NullUUID{}
	}
	return uuid.NullUUID{}, uuid.NullUUID{UUID: uuid.UUID(ref.ID), Valid: true}
}

// Create inserts the row. A unique violation is sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, p *models.Participation) error {
	ssg, dept := electionColumns(p.Election)
	query := `
		INSERT INTO participations (id, voter_id, ssg_election_id, dept_election_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.VoterID), ssg, dept, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert participation: %w", postgres.Classify(err))
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, voterID id.VoterID, ref id.ElectionRef) (bool, error) {
	column := "ssg_election_id"
	if ref.Type == id.ElectionTypeDepartmental {
		column = "dept_election_id"
	}
	query := `SELECT EXISTS (SELECT 1 FROM participations WHERE voter_id = $1 AND ` + column + ` = $2)`
	var exists bool
	if err := txcontext.ExecutorFor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(voterID), uuid.UUID(ref.ID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check participation: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Name() string { return "participations" }

// DuplicateGroups lists every row whose (voter, election) key occurs more
// than once.
func (s *PostgresStore) DuplicateGroups(ctx context.Context) ([]rmodels.Group, error) {
	query := `
		SELECT group_key, id, created_at FROM (
			SELECT
				voter_id::text || '/' || CASE
					WHEN ssg_election_id IS NOT NULL THEN 'ssg:' || ssg_election_id::text
					ELSE 'departmental:' || dept_election_id::text
				END AS group_key,
				id::text AS id,
				created_at,
				COUNT(*) OVER (PARTITION BY voter_id, ssg_election_id, dept_election_id) AS n
			FROM participations
		) t
		WHERE n > 1
		ORDER BY group_key, created_at, id
	`
	return sqltarget.QueryGroups(ctx, s.db, query)
}

// DeleteRows deletes exactly the listed rows, and only while keep exists.
func (s *PostgresStore) DeleteRows(ctx context.Context, keep rmodels.Row, remove []rmodels.Row) (int64, error) {
	query := `
		DELETE FROM participations
		WHERE id::text = ANY($1)
		  AND id::text <> $2
		  AND EXISTS (SELECT 1 FROM participations k WHERE k.id::text = $2)
	`
	res, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query, pq.Array(rmodels.RemovalIDs(remove)), keep.ID)
	if err != nil {
		return 0, fmt.Errorf("delete duplicate participations: %w", postgres.Classify(err))
	}
	return res.RowsAffected()
}

var participationConstraints = []string{
	`DROP INDEX IF EXISTS participations_voter_ssg_uniq`,
	`CREATE UNIQUE INDEX participations_voter_ssg_uniq
		ON participations (voter_id, ssg_election_id)
		WHERE ssg_election_id IS NOT NULL`,
	`DROP INDEX IF EXISTS participations_voter_dept_uniq`,
	`CREATE UNIQUE INDEX participations_voter_dept_uniq
		ON participations (voter_id, dept_election_id)
		WHERE dept_election_id IS NOT NULL`,
}

// InstallConstraints drops and recreates the partial unique indexes in one
// transaction; concurrent inserts wait on the table lock instead of slipping
// through between drop and create.
func (s *PostgresStore) InstallConstraints(ctx context.Context) error {
	return sqltarget.InstallConstraints(ctx, s.db, participationConstraints)
}

func (s *PostgresStore) ConstraintsInstalled(ctx context.Context) (bool, error) {
	return sqltarget.ConstraintsInstalled(ctx, s.db, []string{"participations_voter_ssg_uniq", "participations_voter_dept_uniq"})
}
