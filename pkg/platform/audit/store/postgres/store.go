package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "ballotguard/pkg/domain"
	audit "ballotguard/pkg/platform/audit"
	txcontext "ballotguard/pkg/platform/tx"
)

// Store implements audit.Store on the audit_events table. When the context
// carries a transaction the event commits or rolls back with it.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts the event. Re-appending the same event ID is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	var voterID *uuid.UUID
	if !event.VoterID.IsNil() {
		v := uuid.UUID(event.VoterID)
		voterID = &v
	}

	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, voter_id, subject, action,
			decision, reason, request_id, actor_id, client_ip, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.ExecutorFor(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		voterID,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.ClientIP,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByVoter returns the voter's events oldest first.
func (s *Store) ListByVoter(ctx context.Context, voterID id.VoterID) ([]audit.Event, error) {
	query := `
		SELECT id, category, occurred_at, voter_id, subject, action,
			decision, reason, request_id, actor_id, client_ip, device
		FROM audit_events
		WHERE voter_id = $1
		ORDER BY occurred_at ASC, id ASC
	`
	return s.list(ctx, query, uuid.UUID(voterID))
}

// ListRecent returns the newest limit events, oldest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT * FROM (
			SELECT id, category, occurred_at, voter_id, subject, action,
				decision, reason, request_id, actor_id, client_ip, device
			FROM audit_events
			ORDER BY occurred_at DESC, id DESC
			LIMIT $1
		) recent
		ORDER BY occurred_at ASC, id ASC
	`
	return s.list(ctx, query, limit)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e        audit.Event
			category string
			voterID  uuid.NullUUID
		)
		if err := rows.Scan(&e.ID, &category, &e.Timestamp, &voterID, &e.Subject, &e.Action,
			&e.Decision, &e.Reason, &e.RequestID, &e.ActorID, &e.ClientIP, &e.Device); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		if voterID.Valid {
			e.VoterID = id.VoterID(voterID.UUID)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
