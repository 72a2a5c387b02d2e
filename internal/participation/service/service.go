// Package service implements the participation ledger: registering voters
// for elections and answering the eligibility precondition of a cast.
package service

import (
	"context"
	"errors"
	"log/slog"

	electionmodels "ballotguard/internal/election/models"
	"ballotguard/internal/participation/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	audit "ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/sentinel"
	"ballotguard/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, p *models.Participation) error
	Exists(ctx context.Context, voterID id.VoterID, ref id.ElectionRef) (bool, error)
}

// ElectionLookup is the registry contract the ledger needs.
type ElectionLookup interface {
	Get(ctx context.Context, electionID id.ElectionID) (*electionmodels.Election, error)
}

type Service struct {
	store     Store
	elections ElectionLookup
	logger    *slog.Logger
	auditor   audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

func New(store Store, elections ElectionLookup, opts ...Option) *Service {
	s := &Service{store: store, elections: elections, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records the voter's participation in the referenced election.
// A second registration fails with CodeDuplicateParticipation, decided by
// the store's uniqueness constraint rather than a prior read.
func (s *Service) Register(ctx context.Context, voterID id.VoterID, ref id.ElectionRef) (*models.Participation, error) {
	if voterID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "voter_id is required")
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	e, err := s.elections.Get(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if e.Type != ref.Type {
		return nil, dErrors.New(dErrors.CodeScopeMismatch, "election reference does not match the election type")
	}
	if e.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeElectionClosed, "election is "+string(e.Status))
	}

	p := &models.Participation{
		ID:        id.NewParticipationID(),
		VoterID:   voterID,
		Election:  ref,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.logger.InfoContext(ctx, "participation already registered",
				"voter_id", voterID,
				"election_id", ref.ID,
			)
			return nil, dErrors.New(dErrors.CodeDuplicateParticipation, "voter is already registered for this election")
		}
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeStorageConflict, "registration conflicted, retry")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register participation")
	}

	s.emit(ctx, audit.Event{
		Action:  string(audit.EventParticipationRegistered),
		VoterID: voterID,
		Subject: ref.Key(),
	})
	return p, nil
}

// IsEligible reports whether the voter is registered for the scope's
// election. Position does not matter: eligibility is per election.
func (s *Service) IsEligible(ctx context.Context, voterID id.VoterID, scope id.Scope) (bool, error) {
	ok, err := s.store.Exists(ctx, voterID, scope.ElectionRef())
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check eligibility")
	}
	return ok, nil
}

// CheckEligible is the ballot path's precondition (b).
func (s *Service) CheckEligible(ctx context.Context, voterID id.VoterID, scope id.Scope) error {
	ok, err := s.IsEligible(ctx, voterID, scope)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotEligible, "voter is not registered for this election")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ActorID = "admin"
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
