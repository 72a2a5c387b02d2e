// Command ballotctl runs maintenance against the ballot database: schema
// migrations, duplicate reconciliation and unique index installation.
//
//	ballotctl migrate
//	ballotctl reconcile [--dry-run]
//	ballotctl install-constraints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	ballotstore "ballotguard/internal/ballot/store"
	participationstore "ballotguard/internal/participation/store"
	"ballotguard/internal/platform/config"
	"ballotguard/internal/platform/logger"
	"ballotguard/internal/platform/postgres"
	reconcilelock "ballotguard/internal/reconcile/lock"
	reconcileservice "ballotguard/internal/reconcile/service"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		printUsage(stderr)
		return 2
	}
	command := args[0]

	flags := pflag.NewFlagSet("ballotctl "+command, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to a YAML config file (default $BALLOTGUARD_CONFIG)")
	databaseURL := flags.String("database-url", "", "Postgres URL, overrides the config")
	logLevel := flags.String("log-level", "", "log level, overrides the config")
	dryRun := flags.Bool("dry-run", false, "reconcile: report duplicates without deleting")
	if err := flags.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *databaseURL != "" {
		cfg.DatabaseURL = *databaseURL
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(stderr, "error: a database URL is required (--database-url or DATABASE_URL)")
		return 2
	}
	log := logger.New(stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "migrate":
		err = postgres.Migrate(cfg.DatabaseURL)
		if err == nil {
			fmt.Fprintln(stdout, "migrations applied")
		}
	case "reconcile":
		err = withReconciler(ctx, cfg, log, func(r *reconcileservice.Service) error {
			report, runErr := r.Run(ctx, reconcileservice.RunOptions{DryRun: *dryRun})
			if report != nil {
				if encErr := writeJSON(stdout, report); encErr != nil {
					return errors.Join(runErr, encErr)
				}
			}
			return runErr
		})
	case "install-constraints":
		err = withReconciler(ctx, cfg, log, func(r *reconcileservice.Service) error {
			if err := r.InstallConstraints(ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "constraints installed")
			return nil
		})
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n", command)
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func withReconciler(ctx context.Context, cfg config.Config, log *slog.Logger, fn func(*reconcileservice.Service) error) error {
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	r := reconcileservice.New(
		[]reconcileservice.Target{ballotstore.NewPostgres(db), participationstore.NewPostgres(db)},
		reconcileservice.WithLocker(reconcilelock.NewPostgres(db)),
		reconcileservice.WithLogger(log),
	)
	return fn(r)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `usage: ballotctl <command> [flags]

commands:
  migrate               apply pending schema migrations
  reconcile [--dry-run] remove duplicate ballots and participations, keeping the newest
  install-constraints   drop and recreate the unique indexes

flags:
  --config PATH         YAML config file
  --database-url URL    Postgres URL
  --log-level LEVEL     debug, info, warn or error
`)
}
