// Package service implements the election registry: creation, versioned
// status transitions and the open-for-casting check the ballot path relies
// on. Reads always go to the store; nothing is cached.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ballotguard/internal/election/models"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	audit "ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/sentinel"
	"ballotguard/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, e *models.Election) error
	FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	List(ctx context.Context) ([]*models.Election, error)
	CompareAndSwap(ctx context.Context, updated *models.Election, expectedVersion int64) error
}

type Service struct {
	store   Store
	loc     *time.Location
	logger  *slog.Logger
	auditor audit.Emitter
}

type Option func(*Service)

// WithLocation sets the timezone ballot windows are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, loc: time.UTC, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the timezone windows are evaluated in.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Create(ctx context.Context, in models.NewElection) (*models.Election, error) {
	e, err := in.Build(id.NewElectionID(), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create election")
	}
	s.logger.InfoContext(ctx, "election created",
		"election_id", e.ID,
		"election_type", e.Type,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventElectionCreated),
		Subject: e.ID.String(),
	})
	return e, nil
}

func (s *Service) Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	e, err := s.store.FindByID(ctx, electionID)
	if err != nil {
		return nil, wrapElectionErr(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Election, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list elections")
	}
	return list, nil
}

// AdvanceStatus moves the election to target if the state machine allows
// it. The write is compare-and-set on the version read here, so two admins
// racing on the same election cannot both succeed; the loser gets
// CodeStorageConflict and can retry against the fresh state.
func (s *Service) AdvanceStatus(ctx context.Context, electionID id.ElectionID, target models.Status) (*models.Election, error) {
	current, err := s.store.FindByID(ctx, electionID)
	if err != nil {
		return nil, wrapElectionErr(err)
	}
	if err := current.CanAdvanceTo(target); err != nil {
		return nil, err
	}

	from := current.Status
	next := *current
	next.ApplyAdvance(target, requestcontext.Now(ctx))
	if err := s.store.CompareAndSwap(ctx, &next, current.Version); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeStorageConflict, "election changed concurrently, retry")
		}
		return nil, wrapElectionErr(err)
	}

	s.logger.InfoContext(ctx, "election status advanced",
		"election_id", electionID,
		"from", from,
		"to", target,
		"version", next.Version,
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventElectionStatusChanged),
		Subject:  electionID.String(),
		Decision: string(target),
		Reason:   "from " + string(from),
	})
	return &next, nil
}

// CheckOpen is the ballot path's precondition (a). It returns nil only if
// the scope's election exists, is of the scope's type, is active and now is
// inside its window.
func (s *Service) CheckOpen(ctx context.Context, scope id.Scope) error {
	e, err := s.store.FindByID(ctx, scope.Election())
	if err != nil {
		return wrapElectionErr(err)
	}
	if e.Type != scope.Kind() {
		return dErrors.New(dErrors.CodeScopeMismatch, "scope does not match the election type")
	}
	if e.Status != models.StatusActive {
		return dErrors.New(dErrors.CodeElectionClosed, "election is "+string(e.Status))
	}
	if !e.WithinWindow(requestcontext.Now(ctx), s.loc) {
		return dErrors.New(dErrors.CodeElectionClosed, "election is outside its voting window")
	}
	return nil
}

// IsOpenForCasting reports whether the election currently accepts ballots.
func (s *Service) IsOpenForCasting(ctx context.Context, electionID id.ElectionID) (bool, error) {
	e, err := s.store.FindByID(ctx, electionID)
	if err != nil {
		return false, wrapElectionErr(err)
	}
	return e.IsOpenAt(requestcontext.Now(ctx), s.loc), nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

func wrapElectionErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "election not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load election")
}
