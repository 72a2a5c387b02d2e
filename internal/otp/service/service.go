// Package service implements the OTP session gate: a voter requests a code
// for one scope, verifies it, and the verified code gates exactly one cast
// in that scope.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"ballotguard/internal/otp/metrics"
	"ballotguard/internal/otp/models"
	"ballotguard/internal/platform/config"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	audit "ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/sentinel"
	"ballotguard/pkg/requestcontext"
)

var tracer = otel.Tracer("ballotguard/otp")

type Store interface {
	Save(ctx context.Context, session *models.Session, retention time.Duration) error
	Find(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Session, error)
	Update(ctx context.Context, voterID id.VoterID, scope id.Scope, fn func(*models.Session) error) (*models.Session, error)
}

type Service struct {
	store    Store
	cfg      config.OTPConfig
	limiter  *issueLimiter
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  audit.Emitter
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

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

func New(store Store, cfg config.OTPConfig, opts ...Option) *Service {
	s := &Service{
		store:   store,
		cfg:     cfg,
		limiter: newIssueLimiter(cfg.IssueInterval, cfg.IssueBurst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	return s
}

// IssueResult tells the client when the delivered code stops working.
type IssueResult struct {
	Scope     id.Scope
	ExpiresAt time.Time
}

// Issue creates a code for (voter, scope), replacing any previous session
// for the key, and hands it to the notifier. Only the bcrypt hash is stored.
func (s *Service) Issue(ctx context.Context, voterID id.VoterID, scope id.Scope) (*IssueResult, error) {
	if voterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "voter identity is required")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !s.limiter.Allow(voterID, now) {
		s.metrics.IncrementThrottled()
		s.emit(ctx, audit.EventOTPIssueThrottled, voterID, scope, "rate_limited")
		return nil, dErrors.New(dErrors.CodeOTPRateLimited, "too many codes requested, try again later")
	}

	code, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	session := models.NewSession(voterID, scope, hash, now, s.cfg.TTL)
	if err := s.store.Save(ctx, session, models.Retention(s.cfg.TTL, s.cfg.FreshWindow)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}
	if err := s.notifier.Deliver(ctx, voterID, scope, code); err != nil {
		s.logger.ErrorContext(ctx, "otp delivery failed", "voter_id", voterID, "scope", scope.Key(), "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver code")
	}

	s.metrics.IncrementIssued()
	s.emit(ctx, audit.EventOTPIssued, voterID, scope, "")
	return &IssueResult{Scope: scope, ExpiresAt: session.ExpiresAt}, nil
}

// Verify consumes the code. A wrong code counts against MaxAttempts; when
// the limit is reached the code is burned and later attempts see Expired.
func (s *Service) Verify(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error {
	ctx, span := tracer.Start(ctx, "otp.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("scope", scope.Key()))

	if voterID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "voter identity is required")
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}

	now := requestcontext.Now(ctx)
	_, err := s.store.Update(ctx, voterID, scope, func(session *models.Session) error {
		return session.Verify(code, now, s.cfg.MaxAttempts)
	})
	outcome, mapped := verifyOutcome(err)
	s.metrics.ObserveVerification(outcome)
	if mapped != nil {
		span.SetStatus(codes.Error, outcome)
		s.logger.InfoContext(ctx, "otp verification failed",
			"voter_id", voterID,
			"scope", scope.Key(),
			"outcome", outcome,
		)
		s.emit(ctx, audit.EventOTPVerifyFailed, voterID, scope, outcome)
		return mapped
	}
	s.emit(ctx, audit.EventOTPVerified, voterID, scope, "")
	return nil
}

func verifyOutcome(err error) (string, error) {
	switch {
	case err == nil:
		return "ok", nil
	case errors.Is(err, sentinel.ErrNotFound):
		return "missing", dErrors.New(dErrors.CodeOTPRequired, "no code was issued for this scope")
	case errors.Is(err, sentinel.ErrMismatch):
		return "mismatch", dErrors.New(dErrors.CodeOTPMismatch, "code does not match")
	case errors.Is(err, sentinel.ErrExpired):
		return "expired", dErrors.New(dErrors.CodeOTPExpired, "code has expired, request a new one")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return "already_consumed", dErrors.New(dErrors.CodeOTPAlreadyConsumed, "code was already used")
	case errors.Is(err, sentinel.ErrConflict):
		return "conflict", dErrors.Wrap(err, dErrors.CodeStorageConflict, "verification conflicted, retry")
	default:
		return "error", dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}
}

// RequireFresh is the cast precondition: the voter verified a code for this
// exact scope within FreshWindow and that code has not gated a cast yet. It
// does not change the session; MarkSpent does that after the ballot insert.
func (s *Service) RequireFresh(ctx context.Context, voterID id.VoterID, scope id.Scope) error {
	session, err := s.store.Find(ctx, voterID, scope)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeOTPRequired, "verify a one-time code before casting")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load code")
	}
	now := requestcontext.Now(ctx)
	switch session.State {
	case models.StateSpent:
		return dErrors.New(dErrors.CodeAlreadyVoted, "ballot already cast for this scope")
	case models.StateIssued:
		if now.After(session.ExpiresAt) {
			return dErrors.New(dErrors.CodeOTPExpired, "code has expired, request a new one")
		}
		return dErrors.New(dErrors.CodeOTPRequired, "verify a one-time code before casting")
	case models.StateExpired:
		return dErrors.New(dErrors.CodeOTPExpired, "code has expired, request a new one")
	}
	if !session.FreshAt(now, s.cfg.FreshWindow) {
		return dErrors.New(dErrors.CodeOTPExpired, "verification is too old, request a new code")
	}
	return nil
}

// MarkSpent ties the consumed code to the ballot it gated.
func (s *Service) MarkSpent(ctx context.Context, voterID id.VoterID, scope id.Scope, ballotID id.BallotID) error {
	now := requestcontext.Now(ctx)
	_, err := s.store.Update(ctx, voterID, scope, func(session *models.Session) error {
		return session.Spend(ballotID, now)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark code spent")
	}
	return nil
}

func generateCode(length int) (string, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(length)
	for range length {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, voterID id.VoterID, scope id.Scope, reason string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:    string(action),
		VoterID:   voterID,
		Subject:   scope.Key(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
