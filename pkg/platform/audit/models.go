// Package audit records what happened to elections, OTP codes and ballots.
//
// Audit is best-effort from the caller's point of view: a failing audit sink
// never turns a committed ballot into an error.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "ballotguard/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// route or retain them differently.
type EventCategory string

const (
	// CategoryIntegrity covers events that change or prove the ballot record:
	// casts, reconciliation deletes, constraint installs.
	CategoryIntegrity EventCategory = "integrity"

	// CategorySecurity covers gate failures worth alerting on: OTP
	// mismatches, rate limiting, rejected casts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine administrative activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	VoterID   id.VoterID
	// Subject is the scope key, election id or reconciliation run id the
	// action applies to.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID identifies an administrator acting on behalf of the system.
	ActorID  string
	ClientIP string
	// Device is the "browser on os" summary of the client's user agent.
	Device string
}

type AuditEvent string

const (
	// Ballot events
	EventBallotCast     AuditEvent = "ballot_cast"
	EventBallotRejected AuditEvent = "ballot_rejected"

	// OTP events
	EventOTPIssued         AuditEvent = "otp_issued"
	EventOTPVerified       AuditEvent = "otp_verified"
	EventOTPVerifyFailed   AuditEvent = "otp_verify_failed"
	EventOTPIssueThrottled AuditEvent = "otp_issue_throttled"

	// Election events
	EventElectionCreated       AuditEvent = "election_created"
	EventElectionStatusChanged AuditEvent = "election_status_changed"

	// Participation events
	EventParticipationRegistered AuditEvent = "participation_registered"

	// Reconciliation events
	EventDuplicatesRemoved    AuditEvent = "duplicates_removed"
	EventConstraintsInstalled AuditEvent = "constraints_installed"
	EventReconciliationFailed AuditEvent = "reconciliation_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventBallotCast:           CategoryIntegrity,
	EventDuplicatesRemoved:    CategoryIntegrity,
	EventConstraintsInstalled: CategoryIntegrity,

	EventBallotRejected:       CategorySecurity,
	EventOTPVerifyFailed:      CategorySecurity,
	EventOTPIssueThrottled:    CategorySecurity,
	EventReconciliationFailed: CategorySecurity,

	EventOTPIssued:               CategoryOperations,
	EventOTPVerified:             CategoryOperations,
	EventElectionCreated:         CategoryOperations,
	EventElectionStatusChanged:   CategoryOperations,
	EventParticipationRegistered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Normalize fills the ID, category and timestamp when the emitter left them
// empty.
func (e Event) Normalize(now time.Time) Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Category == "" {
		e.Category = AuditEvent(e.Action).Category()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the port domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
