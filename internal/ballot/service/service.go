// Package service casts ballots. A cast checks its preconditions in a fixed
// order (election open, voter eligible, fresh OTP) and then relies on one
// constrained insert to decide whether this voter already voted in the
// scope. No application lock is taken: concurrent casts for the same scope
// are serialized by the store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ballotguard/internal/ballot/metrics"
	"ballotguard/internal/ballot/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	audit "ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/sentinel"
	"ballotguard/pkg/requestcontext"
)

var tracer = otel.Tracer("ballotguard/ballot")

const defaultCastTimeout = 5 * time.Second

type Store interface {
	Insert(ctx context.Context, b *models.Ballot) error
	FindByScope(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Ballot, error)
}

// ElectionGate is precondition (a).
type ElectionGate interface {
	CheckOpen(ctx context.Context, scope id.Scope) error
}

// EligibilityChecker is precondition (b).
type EligibilityChecker interface {
	CheckEligible(ctx context.Context, voterID id.VoterID, scope id.Scope) error
}

// OTPGate is precondition (c) plus the post-insert bookkeeping that makes a
// verified code good for one cast only.
type OTPGate interface {
	RequireFresh(ctx context.Context, voterID id.VoterID, scope id.Scope) error
	MarkSpent(ctx context.Context, voterID id.VoterID, scope id.Scope, ballotID id.BallotID) error
}

type Service struct {
	store       Store
	elections   ElectionGate
	eligibility EligibilityChecker
	otp         OTPGate
	castTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
	auditor     audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithCastTimeout bounds the whole cast, preconditions included.
func WithCastTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.castTimeout = d
		}
	}
}

func New(store Store, elections ElectionGate, eligibility EligibilityChecker, otp OTPGate, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ballot store is required")
	}
	if elections == nil {
		return nil, errors.New("election gate is required")
	}
	if eligibility == nil {
		return nil, errors.New("eligibility checker is required")
	}
	if otp == nil {
		return nil, errors.New("otp gate is required")
	}
	s := &Service{
		store:       store,
		elections:   elections,
		eligibility: eligibility,
		otp:         otp,
		castTimeout: defaultCastTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Cast records one ballot for (voter, scope) and returns its receipt.
//
// Errors, in the order they are checked:
//   - invalid_scope, missing_position_scope, scope_mismatch
//   - not_found, election_closed (registry)
//   - not_eligible (ledger)
//   - otp_required, otp_expired, already_voted (OTP gate)
//   - already_voted: the constrained insert found an existing ballot
//   - storage_conflict: transient abort, retrying the same cast is safe
//   - timeout: outcome unknown, retrying the same cast is safe
func (s *Service) Cast(ctx context.Context, voterID id.VoterID, scope id.Scope, selections json.RawMessage) (*models.Receipt, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.castTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "ballot.Cast",
		trace.WithAttributes(attribute.String("scope", scope.Key())),
	)
	defer span.End()

	receipt, err := s.cast(ctx, voterID, scope, selections)
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.SetStatus(codes.Error, outcome)
		s.emit(ctx, audit.EventBallotRejected, voterID, scope, outcome)
	} else {
		s.emit(ctx, audit.EventBallotCast, voterID, scope, "")
	}
	s.metrics.ObserveCast(outcome, time.Since(start))
	return receipt, err
}

func (s *Service) cast(ctx context.Context, voterID id.VoterID, scope id.Scope, selections json.RawMessage) (*models.Receipt, error) {
	if voterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "voter identity is required")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := s.elections.CheckOpen(ctx, scope); err != nil {
		return nil, s.timeoutOr(ctx, err)
	}
	if err := s.eligibility.CheckEligible(ctx, voterID, scope); err != nil {
		return nil, s.timeoutOr(ctx, err)
	}
	if err := s.otp.RequireFresh(ctx, voterID, scope); err != nil {
		return nil, s.timeoutOr(ctx, err)
	}

	ballot, err := models.NewBallot(id.NewBallotID(), voterID, scope, selections, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, ballot); err != nil {
		return nil, s.insertError(ctx, voterID, scope, err)
	}
	trace.SpanFromContext(ctx).AddEvent("ballot.inserted",
		trace.WithAttributes(attribute.String("ballot_id", ballot.ID.String())),
	)

	if err := s.otp.MarkSpent(ctx, voterID, scope, ballot.ID); err != nil {
		// The ballot is stored; a later cast for this scope still fails at the
		// insert.
		s.logger.WarnContext(ctx, "failed to mark otp spent after cast",
			"voter_id", voterID,
			"scope", scope.Key(),
			"ballot_id", ballot.ID,
			"error", err,
		)
	}
	s.logger.InfoContext(ctx, "ballot cast",
		"request_id", requestcontext.RequestID(ctx),
		"voter_id", voterID,
		"scope", scope.Key(),
		"ballot_id", ballot.ID,
	)
	return ballot.Receipt(), nil
}

func (s *Service) insertError(ctx context.Context, voterID id.VoterID, scope id.Scope, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.logger.InfoContext(ctx, "cast rejected, ballot already recorded",
			"voter_id", voterID,
			"scope", scope.Key(),
		)
		return dErrors.New(dErrors.CodeAlreadyVoted, "ballot already cast for this scope")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		s.logger.WarnContext(ctx, "cast outcome unknown",
			"voter_id", voterID,
			"scope", scope.Key(),
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeTimeout, "cast outcome unknown, retrying is safe")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeStorageConflict, "cast conflicted, retrying is safe")
	default:
		s.logger.ErrorContext(ctx, "ballot insert failed", "voter_id", voterID, "scope", scope.Key(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ballot")
	}
}

// timeoutOr reports a precondition failure caused by the cast deadline as a
// timeout; nothing was written in that case.
func (s *Service) timeoutOr(ctx context.Context, err error) error {
	if ctx.Err() != nil && dErrors.CodeOf(err) == dErrors.CodeInternal {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "cast timed out before the ballot was written")
	}
	return err
}

// Receipt returns the receipt of the voter's ballot in scope, so a client
// whose cast timed out can learn the outcome.
func (s *Service) Receipt(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Receipt, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	b, err := s.store.FindByScope(ctx, voterID, scope)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no ballot cast for this scope")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ballot")
	}
	return b.Receipt(), nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, voterID id.VoterID, scope id.Scope, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:    string(action),
		VoterID:   voterID,
		Subject:   scope.Key(),
		Decision:  decision(reason),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
	}
	if err := s.auditor.Emit(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}

func decision(reason string) string {
	if reason == "" {
		return "accepted"
	}
	return "rejected"
}
