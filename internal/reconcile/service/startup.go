package service

import (
	"context"
	"errors"

	dErrors "ballotguard/pkg/domain-errors"
)

// Startup runs the reconciler before casting opens. A run that could not
// take the lock, or that failed, is tolerated as long as every target
// already has its unique indexes: the invariant is then enforced at write
// time and the next scheduled run retries the cleanup. Startup fails only
// when a target is left without its constraints.
func (s *Service) Startup(ctx context.Context) error {
	_, runErr := s.Run(ctx, RunOptions{})
	if runErr == nil {
		return nil
	}

	var missing []string
	for _, target := range s.targets {
		ok, err := target.ConstraintsInstalled(ctx)
		if err != nil {
			return dErrors.Wrap(errors.Join(runErr, err), dErrors.CodeReconciliationFailure,
				"check constraints on "+target.Name())
		}
		if !ok {
			missing = append(missing, target.Name())
		}
	}
	if len(missing) > 0 {
		s.logger.ErrorContext(ctx, "startup reconciliation left targets unconstrained",
			"targets", missing,
			"error", runErr,
		)
		return dErrors.Wrap(runErr, dErrors.CodeReconciliationFailure, "unique constraints missing after startup reconciliation")
	}

	if errors.Is(runErr, ErrBusy) {
		s.logger.InfoContext(ctx, "startup reconciliation skipped, another run holds the lock", "error", runErr)
	} else {
		s.logger.WarnContext(ctx, "startup reconciliation failed, constraints are installed", "error", runErr)
	}
	return nil
}
