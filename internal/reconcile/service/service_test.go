package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	ballotmodels "ballotguard/internal/ballot/models"
	ballotstore "ballotguard/internal/ballot/store"
	participationmodels "ballotguard/internal/participation/models"
	participationstore "ballotguard/internal/participation/store"
	"ballotguard/internal/reconcile/metrics"
	"ballotguard/internal/reconcile/models"
	"ballotguard/internal/reconcile/service"
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/audit"
	"ballotguard/pkg/platform/audit/publisher"
	auditmemory "ballotguard/pkg/platform/audit/store/memory"
	"ballotguard/pkg/platform/sentinel"
)

// =============================================================================
// Reconciler Test Suite
// =============================================================================
// Justification: the reconciler deletes ballots. These tests pin the keep-
// newest policy, re-run safety, dry runs and single-instance execution
// against the in-memory stores with their constraints dropped.

type ReconcilerSuite struct {
	suite.Suite
	ballots        *ballotstore.InMemoryStore
	participations *participationstore.InMemoryStore
	auditStore     *auditmemory.InMemoryStore
	metrics        *metrics.Metrics
	service        *service.Service
	base           time.Time
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.ballots = ballotstore.NewInMemory()
	s.ballots.DropConstraints()
	s.participations = participationstore.NewInMemory()
	s.participations.DropConstraints()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = s.newService()
}

func (s *ReconcilerSuite) newService(opts ...service.Option) *service.Service {
	return service.New([]service.Target{s.ballots, s.participations}, append([]service.Option{
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		service.WithMetrics(s.metrics),
		service.WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		service.WithHistory(3),
	}, opts...)...)
}

func (s *ReconcilerSuite) seedBallots(voter id.VoterID, scope id.Scope, n int) []*ballotmodels.Ballot {
	out := make([]*ballotmodels.Ballot, 0, n)
	for i := range n {
		b, err := ballotmodels.NewBallot(id.NewBallotID(), voter, scope, nil, s.base.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(err)
		s.Require().NoError(s.ballots.Insert(context.Background(), b))
		out = append(out, b)
	}
	return out
}

// =============================================================================
// Keep newest
// =============================================================================

func (s *ReconcilerSuite) TestKeepsNewestAndIsRerunnable() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())
	seeded := s.seedBallots(voter, scope, 3)

	report, err := s.service.Run(ctx, service.RunOptions{})
	s.Require().NoError(err)
	ballots, ok := report.Target("ballots")
	s.Require().True(ok)
	s.Equal(int64(2), ballots.RowsRemoved)
	s.Equal(1, ballots.DuplicateGroups)
	s.True(ballots.ConstraintsInstalled)
	s.Equal(seeded[2].ID.String(), ballots.Groups[0].Kept.ID)

	found, err := s.ballots.FindByScope(ctx, voter, scope)
	s.Require().NoError(err)
	s.Equal(seeded[2].ID, found.ID)
	s.Equal(1, s.ballots.Count(voter, scope))

	again, err := s.service.Run(ctx, service.RunOptions{})
	s.Require().NoError(err)
	s.Zero(again.RowsRemoved())

	s.Equal(2.0, testutil.ToFloat64(s.metrics.RowsRemoved.WithLabelValues("ballots")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Runs.WithLabelValues("ok")))

	events, err := s.auditStore.ListByAction(ctx, audit.EventDuplicatesRemoved)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ReconcilerSuite) TestConstraintHoldsAfterRun() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.DepartmentalScope(id.NewElectionID(), id.PositionID(id.NewElectionID()))
	s.seedBallots(voter, scope, 2)

	_, err := s.service.Run(ctx, service.RunOptions{})
	s.Require().NoError(err)

	b, err := ballotmodels.NewBallot(id.NewBallotID(), voter, scope, nil, time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.ballots.Insert(ctx, b), sentinel.ErrAlreadyUsed)
}

func (s *ReconcilerSuite) TestParticipationsAreReconciledToo() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	ref := id.ElectionRef{Type: id.ElectionTypeDepartmental, ID: id.NewElectionID()}
	for i := range 4 {
		s.Require().NoError(s.participations.Create(ctx, &participationmodels.Participation{
			ID: id.NewParticipationID(), VoterID: voter, Election: ref, CreatedAt: s.base.Add(time.Duration(i) * time.Second),
		}))
	}

	report, err := s.service.Run(ctx, service.RunOptions{})
	s.Require().NoError(err)
	participations, ok := report.Target("participations")
	s.Require().True(ok)
	s.Equal(int64(3), participations.RowsRemoved)
	s.Equal(1, s.participations.Count(voter, ref))
}

func (s *ReconcilerSuite) TestDryRunChangesNothing() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())
	s.seedBallots(voter, scope, 3)

	report, err := s.service.Run(ctx, service.RunOptions{DryRun: true})
	s.Require().NoError(err)
	s.True(report.DryRun)
	ballots, _ := report.Target("ballots")
	s.Equal(1, ballots.DuplicateGroups)
	s.Len(ballots.Groups[0].Removed, 2)
	s.Zero(ballots.RowsRemoved)
	s.False(ballots.ConstraintsInstalled)
	s.Equal(3, s.ballots.Count(voter, scope))
}

// =============================================================================
// Failures and exclusion
// =============================================================================

type failingTarget struct{ name string }

func (f failingTarget) Name() string { return f.name }
func (f failingTarget) DuplicateGroups(context.Context) ([]models.Group, error) {
	return nil, errors.New("connection reset")
}
func (f failingTarget) DeleteRows(context.Context, models.Row, []models.Row) (int64, error) {
	return 0, nil
}
func (f failingTarget) InstallConstraints(context.Context) error { return nil }
func (f failingTarget) ConstraintsInstalled(context.Context) (bool, error) {
	return true, nil
}

func (s *ReconcilerSuite) TestTargetFailureDoesNotStopOthers() {
	ctx := context.Background()
	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())
	s.seedBallots(voter, scope, 2)

	svc := service.New([]service.Target{failingTarget{name: "broken"}, s.ballots},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	report, err := svc.Run(ctx, service.RunOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeReconciliationFailure))
	s.Require().NotNil(report)
	s.Contains(report.Error, "connection reset")

	ballots, _ := report.Target("ballots")
	s.Equal(int64(1), ballots.RowsRemoved)
	s.Len(svc.Reports(), 1)
}

type blockingTarget struct {
	failingTarget
	entered chan struct{}
	release chan struct{}
}

func (b blockingTarget) DuplicateGroups(context.Context) ([]models.Group, error) {
	close(b.entered)
	<-b.release
	return nil, nil
}

func (s *ReconcilerSuite) TestConcurrentRunIsRefused() {
	ctx := context.Background()
	blocker := blockingTarget{failingTarget: failingTarget{name: "slow"}, entered: make(chan struct{}), release: make(chan struct{})}
	svc := service.New([]service.Target{blocker}, service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(ctx, service.RunOptions{})
		done <- err
	}()
	<-blocker.entered

	_, err := svc.Run(ctx, service.RunOptions{})
	s.True(dErrors.HasCode(err, dErrors.CodeReconciliationFailure))
	s.ErrorContains(err, "already running")

	close(blocker.release)
	s.NoError(<-done)
}

type refusingLocker struct{}

func (refusingLocker) TryLock(context.Context) (func(), bool, error) { return nil, false, nil }

func (s *ReconcilerSuite) TestLockHeldElsewhere() {
	svc := s.newService(service.WithLocker(refusingLocker{}))
	_, err := svc.Run(context.Background(), service.RunOptions{})
	s.ErrorContains(err, "another process")
	s.ErrorIs(err, service.ErrBusy)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Runs.WithLabelValues("skipped")))
}

// =============================================================================
// Startup
// =============================================================================

func (s *ReconcilerSuite) TestStartupToleratesLockHeldElsewhere() {
	s.Require().NoError(s.ballots.InstallConstraints(context.Background()))
	s.Require().NoError(s.participations.InstallConstraints(context.Background()))
	svc := s.newService(service.WithLocker(refusingLocker{}))

	s.NoError(svc.Startup(context.Background()))
	s.Empty(svc.Reports())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Runs.WithLabelValues("skipped")))
}

func (s *ReconcilerSuite) TestStartupFailsWhenLockHeldAndConstraintsMissing() {
	svc := s.newService(service.WithLocker(refusingLocker{}))

	err := svc.Startup(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeReconciliationFailure))
	s.ErrorIs(err, service.ErrBusy)
	s.ErrorContains(err, "constraints missing")
}

func (s *ReconcilerSuite) TestStartupRunsWhenLockIsFree() {
	voter := id.VoterID(id.NewBallotID())
	scope := id.SSGScope(id.NewElectionID())
	s.seedBallots(voter, scope, 2)

	s.Require().NoError(s.service.Startup(context.Background()))
	s.Equal(1, s.ballots.Count(voter, scope))
	installed, err := s.ballots.ConstraintsInstalled(context.Background())
	s.Require().NoError(err)
	s.True(installed)
}

func (s *ReconcilerSuite) TestStartupToleratesFailedRunWithConstraints() {
	svc := service.New([]service.Target{failingTarget{name: "broken"}},
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.NoError(svc.Startup(context.Background()))
	s.Require().Len(svc.Reports(), 1)
	s.NotEmpty(svc.Reports()[0].Error)
}

func (s *ReconcilerSuite) TestHistoryIsBoundedNewestFirst() {
	ctx := context.Background()
	var ids []string
	for range 4 {
		report, err := s.service.Run(ctx, service.RunOptions{})
		s.Require().NoError(err)
		ids = append(ids, report.RunID)
	}
	reports := s.service.Reports()
	s.Require().Len(reports, 3)
	s.Equal(ids[3], reports[0].RunID)
	s.Equal(ids[1], reports[2].RunID)
}

func (s *ReconcilerSuite) TestInstallConstraintsFailsWithDuplicates() {
	voter := id.VoterID(id.NewBallotID())
	s.seedBallots(voter, id.SSGScope(id.NewElectionID()), 2)
	err := s.service.InstallConstraints(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeReconciliationFailure))
}
