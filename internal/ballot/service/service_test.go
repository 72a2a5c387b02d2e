package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,ElectionGate,EligibilityChecker,OTPGate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ballotguard/internal/ballot/metrics"
	"ballotguard/internal/ballot/models"
	"ballotguard/internal/ballot/service/mocks"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/audit/publisher"
	auditmemory "ballotguard/pkg/platform/audit/store/memory"
	"ballotguard/pkg/platform/sentinel"
	"ballotguard/pkg/requestcontext"
)

// =============================================================================
// Cast Service Test Suite
// =============================================================================
// Justification for unit tests: the order of preconditions and the mapping
// of store outcomes to error codes are the contract of Cast. Mocks make each
// failure point reachable in isolation and prove later checks never run.

type CastServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	store       *mocks.MockStore
	elections   *mocks.MockElectionGate
	eligibility *mocks.MockEligibilityChecker
	otp         *mocks.MockOTPGate
	auditStore  *auditmemory.InMemoryStore
	metrics     *metrics.Metrics
	service     *Service
	voter       id.VoterID
	scope       id.Scope
	ctx         context.Context
}

func TestCastServiceSuite(t *testing.T) {
	suite.Run(t, new(CastServiceSuite))
}

func (s *CastServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.elections = mocks.NewMockElectionGate(s.ctrl)
	s.eligibility = mocks.NewMockEligibilityChecker(s.ctrl)
	s.otp = mocks.NewMockOTPGate(s.ctrl)
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.service, err = New(s.store, s.elections, s.eligibility, s.otp,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithCastTimeout(time.Second),
	)
	s.Require().NoError(err)

	s.voter = id.VoterID(id.NewBallotID())
	s.scope = id.DepartmentalScope(id.NewElectionID(), id.PositionID(id.NewElectionID()))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
}

func (s *CastServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CastServiceSuite) cast() (*models.Receipt, error) {
	return s.service.Cast(s.ctx, s.voter, s.scope, json.RawMessage(`{"candidate_id":"c1"}`))
}

func (s *CastServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.elections, s.eligibility, s.otp)
		s.ErrorContains(err, "ballot store is required")
	})
	s.Run("nil otp gate returns error", func() {
		_, err := New(s.store, s.elections, s.eligibility, nil)
		s.ErrorContains(err, "otp gate is required")
	})
}

// =============================================================================
// Precondition order
// =============================================================================

func (s *CastServiceSuite) TestElectionClosedStopsEverything() {
	s.elections.EXPECT().CheckOpen(gomock.Any(), s.scope).
		Return(dErrors.New(dErrors.CodeElectionClosed, "closed"))

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeElectionClosed))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CastOutcomes.WithLabelValues("election_closed")))
}

func (s *CastServiceSuite) TestNotEligibleSkipsOTPAndInsert() {
	gomock.InOrder(
		s.elections.EXPECT().CheckOpen(gomock.Any(), s.scope).Return(nil),
		s.eligibility.EXPECT().CheckEligible(gomock.Any(), s.voter, s.scope).
			Return(dErrors.New(dErrors.CodeNotEligible, "not registered")),
	)

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
}

func (s *CastServiceSuite) TestMissingOTPSkipsInsert() {
	gomock.InOrder(
		s.elections.EXPECT().CheckOpen(gomock.Any(), s.scope).Return(nil),
		s.eligibility.EXPECT().CheckEligible(gomock.Any(), s.voter, s.scope).Return(nil),
		s.otp.EXPECT().RequireFresh(gomock.Any(), s.voter, s.scope).
			Return(dErrors.New(dErrors.CodeOTPRequired, "verify first")),
	)

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeOTPRequired))
}

func (s *CastServiceSuite) TestIncompleteScopeChecksNothing() {
	_, err := s.service.Cast(s.ctx, s.voter, id.Scope{}, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidScope))
}

// =============================================================================
// Insert outcomes
// =============================================================================

func (s *CastServiceSuite) expectPreconditions() {
	s.elections.EXPECT().CheckOpen(gomock.Any(), s.scope).Return(nil)
	s.eligibility.EXPECT().CheckEligible(gomock.Any(), s.voter, s.scope).Return(nil)
	s.otp.EXPECT().RequireFresh(gomock.Any(), s.voter, s.scope).Return(nil)
}

func (s *CastServiceSuite) TestSuccessReturnsReceiptAndSpendsCode() {
	s.expectPreconditions()
	var stored *models.Ballot
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *models.Ballot) error {
		stored = b
		return nil
	})
	s.otp.EXPECT().MarkSpent(gomock.Any(), s.voter, s.scope, gomock.Any()).Return(nil)

	s.ctx = requestcontext.WithClientMetadata(s.ctx, "203.0.113.7", "Mozilla/5.0", "Chrome on Linux")
	receipt, err := s.cast()
	s.Require().NoError(err)
	s.Equal(stored.ID, receipt.BallotID)
	s.Equal(stored.Digest, receipt.Digest)
	s.Equal(s.scope, receipt.Scope)
	s.True(stored.Verify())

	events, err := s.auditStore.ListByAction(s.ctx, audit.EventBallotCast)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("203.0.113.7", events[0].ClientIP)
	s.Equal("Chrome on Linux", events[0].Device)
}

func (s *CastServiceSuite) TestConstraintRejectionIsAlreadyVoted() {
	s.expectPreconditions()
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(sentinel.ErrAlreadyUsed)

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyVoted))
	events, err := s.auditStore.ListByAction(s.ctx, audit.EventBallotRejected)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("already_voted", events[0].Reason)
}

func (s *CastServiceSuite) TestSerializationFailureIsStorageConflict() {
	s.expectPreconditions()
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).
		Return(errors.Join(sentinel.ErrConflict, errors.New("40001")))

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeStorageConflict))
}

func (s *CastServiceSuite) TestInsertPastDeadlineIsTimeout() {
	s.expectPreconditions()
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ *models.Ballot) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := s.cast()
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *CastServiceSuite) TestMarkSpentFailureDoesNotFailCast() {
	s.expectPreconditions()
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	s.otp.EXPECT().MarkSpent(gomock.Any(), s.voter, s.scope, gomock.Any()).Return(errors.New("redis down"))

	_, err := s.cast()
	s.NoError(err)
}

func (s *CastServiceSuite) TestReceiptLookup() {
	b, err := models.NewBallot(id.NewBallotID(), s.voter, s.scope, nil, time.Now())
	s.Require().NoError(err)
	s.store.EXPECT().FindByScope(gomock.Any(), s.voter, s.scope).Return(b, nil)
	s.store.EXPECT().FindByScope(gomock.Any(), s.voter, s.scope).Return(nil, sentinel.ErrNotFound)

	receipt, err := s.service.Receipt(s.ctx, s.voter, s.scope)
	s.Require().NoError(err)
	s.Equal(b.ID, receipt.BallotID)

	_, err = s.service.Receipt(s.ctx, s.voter, s.scope)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
