package service

import (
	"context"
	"log/slog"

	id "ballotguard/pkg/domain"
)

// Notifier delivers a freshly issued code to the voter out of band.
type Notifier interface {
	Deliver(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error

func (f NotifierFunc) Deliver(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error {
	return f(ctx, voterID, scope, code)
}

// LogNotifier writes codes to the log. Development only.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Deliver(ctx context.Context, voterID id.VoterID, scope id.Scope, code string) error {
	n.Logger.InfoContext(ctx, "otp code issued (development delivery)",
		"voter_id", voterID,
		"scope", scope.Key(),
		"code", code,
	)
	return nil
}
