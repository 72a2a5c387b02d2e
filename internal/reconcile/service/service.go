// Package service is the duplicate reconciler. A run scans each target for
// rows sharing a uniqueness key, keeps the newest row of every group,
// deletes the rest and reinstalls the target's unique indexes. Runs are
// serialized within the process and, when a Locker is configured, across
// processes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ballotguard/internal/reconcile/metrics"
	"ballotguard/internal/reconcile/models"
	dErrors "ballotguard/pkg/domain-errors"
	audit "ballotguard/pkg/platform/audit"
)

var tracer = otel.Tracer("ballotguard/reconcile")

// Target is a table whose uniqueness the reconciler maintains.
type Target interface {
	Name() string
	DuplicateGroups(ctx context.Context) ([]models.Group, error)
	// DeleteRows removes exactly the given rows, and only while keep exists.
	DeleteRows(ctx context.Context, keep models.Row, remove []models.Row) (int64, error)
	// InstallConstraints drops and recreates the unique indexes.
	InstallConstraints(ctx context.Context) error
	ConstraintsInstalled(ctx context.Context) (bool, error)
}

// ErrBusy is wrapped by Run and InstallConstraints when another run holds
// the lock.
var ErrBusy = errors.New("reconciliation lock held")

// Locker excludes other processes from running concurrently.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type Service struct {
	targets []Target
	locker  Locker
	mu      sync.Mutex
	history *history
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
	now     func() time.Time
}

type Option func(*Service)

func WithLocker(l Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

func WithHistory(n int) Option {
	return func(s *Service) {
		s.history = newHistory(n)
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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(targets []Target, opts ...Option) *Service {
	s := &Service{
		targets: targets,
		history: newHistory(defaultHistory),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOptions tunes a single run.
type RunOptions struct {
	// DryRun reports what would be removed without deleting or touching
	// indexes.
	DryRun bool
}

// Run reconciles every target and records the report. A run that cannot
// take the lock does nothing and fails with CodeReconciliationFailure.
// Target failures do not stop the other targets; they are collected in the
// report and returned as one CodeReconciliationFailure.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*models.Report, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		s.metrics.ObserveRun("skipped", 0, s.now())
		return nil, err
	}
	defer release()

	ctx, span := tracer.Start(ctx, "reconcile.Run")
	defer span.End()
	span.SetAttributes(attribute.Bool("dry_run", opts.DryRun))

	report := models.Report{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		StartedAt: s.now(),
	}
	var failures []error
	for _, target := range s.targets {
		tr, err := s.reconcileTarget(ctx, target, opts)
		if err != nil {
			tr.Error = err.Error()
			failures = append(failures, fmt.Errorf("%s: %w", target.Name(), err))
		}
		report.Targets = append(report.Targets, tr)
	}
	report.FinishedAt = s.now()
	elapsed := report.FinishedAt.Sub(report.StartedAt)

	if len(failures) > 0 {
		joined := errors.Join(failures...)
		report.Error = joined.Error()
		s.history.add(report)
		s.metrics.ObserveRun("failed", elapsed, report.FinishedAt)
		span.SetStatus(codes.Error, report.Error)
		s.logger.ErrorContext(ctx, "reconciliation failed",
			"run_id", report.RunID,
			"error", joined,
		)
		s.emit(ctx, audit.Event{
			Action:  string(audit.EventReconciliationFailed),
			Subject: report.RunID,
			Reason:  report.Error,
		})
		return &report, dErrors.Wrap(joined, dErrors.CodeReconciliationFailure, "reconciliation failed")
	}

	s.history.add(report)
	s.metrics.ObserveRun("ok", elapsed, report.FinishedAt)
	s.logger.InfoContext(ctx, "reconciliation finished",
		"run_id", report.RunID,
		"dry_run", report.DryRun,
		"rows_removed", report.RowsRemoved(),
		"duration", elapsed,
	)
	return &report, nil
}

func (s *Service) reconcileTarget(ctx context.Context, target Target, opts RunOptions) (models.TargetReport, error) {
	tr := models.TargetReport{Name: target.Name()}
	groups, err := target.DuplicateGroups(ctx)
	if err != nil {
		return tr, fmt.Errorf("scan duplicates: %w", err)
	}

	for _, g := range groups {
		if !g.IsDuplicate() {
			continue
		}
		keep, remove := g.Partition()
		gr := models.GroupReport{Key: g.Key, Kept: keep, Removed: remove}
		tr.DuplicateGroups++
		if !opts.DryRun {
			n, err := target.DeleteRows(ctx, keep, remove)
			if err != nil {
				tr.Groups = append(tr.Groups, gr)
				return tr, fmt.Errorf("delete duplicates of %s: %w", g.Key, err)
			}
			gr.RowsRemoved = n
			tr.RowsRemoved += n
			s.metrics.AddRemoved(tr.Name, n)
			s.logger.InfoContext(ctx, "duplicate rows removed",
				"target", tr.Name,
				"key", g.Key,
				"kept", keep.ID,
				"removed", n,
			)
			s.emit(ctx, audit.Event{
				Action:   string(audit.EventDuplicatesRemoved),
				Subject:  tr.Name + ":" + g.Key,
				Decision: "kept " + keep.ID,
				Reason:   fmt.Sprintf("removed %d rows", n),
			})
		}
		tr.Groups = append(tr.Groups, gr)
	}

	if opts.DryRun {
		return tr, nil
	}
	if err := target.InstallConstraints(ctx); err != nil {
		return tr, fmt.Errorf("install constraints: %w", err)
	}
	tr.ConstraintsInstalled = true
	s.emit(ctx, audit.Event{
		Action:  string(audit.EventConstraintsInstalled),
		Subject: tr.Name,
	})
	return tr, nil
}

// InstallConstraints only reinstalls the unique indexes. It fails on a
// target that still holds duplicates.
func (s *Service) InstallConstraints(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	for _, target := range s.targets {
		if err := target.InstallConstraints(ctx); err != nil {
			return dErrors.Wrap(err, dErrors.CodeReconciliationFailure, "install constraints on "+target.Name())
		}
		s.logger.InfoContext(ctx, "constraints installed", "target", target.Name())
	}
	return nil
}

// Reports returns past runs, newest first.
func (s *Service) Reports() []models.Report {
	return s.history.list()
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if !s.mu.TryLock() {
		return nil, dErrors.Wrap(ErrBusy, dErrors.CodeReconciliationFailure, "reconciliation already running")
	}
	if s.locker == nil {
		return s.mu.Unlock, nil
	}
	release, ok, err := s.locker.TryLock(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, dErrors.Wrap(err, dErrors.CodeReconciliationFailure, "failed to take reconciliation lock")
	}
	if !ok {
		s.mu.Unlock()
		return nil, dErrors.Wrap(ErrBusy, dErrors.CodeReconciliationFailure, "reconciliation already running in another process")
	}
	return func() {
		release()
		s.mu.Unlock()
	}, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.ActorID = "reconciler"
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
