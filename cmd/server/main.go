package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	ballothandler "ballotguard/internal/ballot/handler"
	ballotmetrics "ballotguard/internal/ballot/metrics"
	ballotservice "ballotguard/internal/ballot/service"
	ballotstore "ballotguard/internal/ballot/store"
	electionhandler "ballotguard/internal/election/handler"
	electionservice "ballotguard/internal/election/service"
	electionstore "ballotguard/internal/election/store"
	jwttoken "ballotguard/internal/jwt_token"
	otphandler "ballotguard/internal/otp/handler"
	otpmetrics "ballotguard/internal/otp/metrics"
	otpservice "ballotguard/internal/otp/service"
	otpstore "ballotguard/internal/otp/store"
	participationhandler "ballotguard/internal/participation/handler"
	participationservice "ballotguard/internal/participation/service"
	participationstore "ballotguard/internal/participation/store"
	"ballotguard/internal/platform/config"
	"ballotguard/internal/platform/httpserver"
	"ballotguard/internal/platform/logger"
	"ballotguard/internal/platform/metrics"
	"ballotguard/internal/platform/postgres"
	redisclient "ballotguard/internal/platform/redis"
	reconcilehandler "ballotguard/internal/reconcile/handler"
	reconcilelock "ballotguard/internal/reconcile/lock"
	reconcilemetrics "ballotguard/internal/reconcile/metrics"
	reconcileservice "ballotguard/internal/reconcile/service"
	httptransport "ballotguard/internal/transport/http"
	audit "ballotguard/pkg/platform/audit"
	auditpublisher "ballotguard/pkg/platform/audit/publisher"
	kafkaaudit "ballotguard/pkg/platform/audit/store/kafka"
	auditmemory "ballotguard/pkg/platform/audit/store/memory"
	auditpostgres "ballotguard/pkg/platform/audit/store/postgres"
	"ballotguard/pkg/platform/middleware/ratelimit"
)

const (
	shutdownTimeout = 15 * time.Second
	auditBuffer     = 1024
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ballotguard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("ballotguard", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file (default $BALLOTGUARD_CONFIG)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logger.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := prometheus.DefaultRegisterer
	processMetrics := metrics.New(reg)
	processMetrics.MarkStarted(cfg.Environment)

	publisher := auditpublisher.NewPublisher(deps.auditStore,
		auditpublisher.WithAsyncBuffer(auditBuffer),
		auditpublisher.WithLogger(log),
	)

	elections := electionservice.New(deps.elections,
		electionservice.WithLocation(cfg.Location()),
		electionservice.WithLogger(log),
		electionservice.WithAuditPublisher(publisher),
	)
	participations := participationservice.New(deps.participations, elections,
		participationservice.WithLogger(log),
		participationservice.WithAuditPublisher(publisher),
	)
	otp := otpservice.New(deps.otpSessions, cfg.OTP,
		otpservice.WithLogger(log),
		otpservice.WithMetrics(otpmetrics.New(reg)),
		otpservice.WithAuditPublisher(publisher),
	)
	ballots, err := ballotservice.New(deps.ballots, elections, participations, otp,
		ballotservice.WithLogger(log),
		ballotservice.WithMetrics(ballotmetrics.New(reg)),
		ballotservice.WithAuditPublisher(publisher),
		ballotservice.WithCastTimeout(cfg.CastTimeout),
	)
	if err != nil {
		return err
	}

	reconcileOpts := []reconcileservice.Option{
		reconcileservice.WithHistory(cfg.Reconcile.ReportHistory),
		reconcileservice.WithLogger(log),
		reconcileservice.WithMetrics(reconcilemetrics.New(reg)),
		reconcileservice.WithAuditPublisher(publisher),
	}
	if deps.db != nil {
		reconcileOpts = append(reconcileOpts, reconcileservice.WithLocker(reconcilelock.NewPostgres(deps.db)))
	}
	reconciler := reconcileservice.New(deps.targets, reconcileOpts...)

	// Casting only opens on a schema whose unique indexes are in place.
	if err := reconciler.Startup(ctx); err != nil {
		publisher.Close()
		return fmt.Errorf("startup reconciliation: %w", err)
	}

	electionHandler := electionhandler.New(elections, log)
	participationHandler := participationhandler.New(participations, log)
	routerDeps := httptransport.RouterDeps{
		Logger:         log,
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer)),
		AdminToken:     cfg.AdminToken,
		Latency:        processMetrics.HTTPLatency,
		Gatherer:       prometheus.DefaultGatherer,
		Voter: []httptransport.VoterRoutes{
			electionHandler,
			participationHandler,
			otphandler.New(otp, log),
			ballothandler.New(ballots, log),
		},
		Admin: []httptransport.AdminRoutes{
			electionHandler,
			participationHandler,
			reconcilehandler.New(reconciler, log),
		},
	}
	if deps.db != nil {
		routerDeps.Health = deps.db
	}
	if cfg.RateLimit.Enabled {
		routerDeps.VoterRateLimit = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log).PerIP
	}
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(routerDeps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, shutdownTimeout, log)
	})
	if cfg.Reconcile.Enabled {
		g.Go(func() error {
			return reconciler.Schedule(gctx, cfg.Reconcile.Interval)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		publisher.Close()
		log.Info("audit publisher drained", "dropped", publisher.Dropped())
		return nil
	})

	log.Info("ballotguard started",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", deps.db != nil,
		"redis", deps.redis != nil,
		"kafka", len(cfg.KafkaBrokers) > 0,
	)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("ballotguard stopped")
	return nil
}

// backends holds the stores chosen by configuration. Without a database URL
// every store is in memory, which is only suitable for development.
type backends struct {
	db             *sql.DB
	redis          *redisclient.Client
	elections      electionservice.Store
	participations participationservice.Store
	ballots        ballotservice.Store
	otpSessions    otpservice.Store
	auditStore     audit.Store
	targets        []reconcileservice.Target
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger) (*backends, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	b := &backends{}

	if cfg.DatabaseURL != "" {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })
		b.db = db
		ballots := ballotstore.NewPostgres(db)
		participations := participationstore.NewPostgres(db)
		b.elections = electionstore.NewPostgres(db)
		b.participations = participations
		b.ballots = ballots
		b.auditStore = auditpostgres.New(db)
		b.targets = []reconcileservice.Target{ballots, participations}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		ballots := ballotstore.NewInMemory()
		participations := participationstore.NewInMemory()
		b.elections = electionstore.NewInMemory()
		b.participations = participations
		b.ballots = ballots
		b.auditStore = auditmemory.NewInMemoryStore()
		b.targets = []reconcileservice.Target{ballots, participations}
	}

	rc, err := redisclient.New(ctx, cfg.RedisURL, cfg.Redis)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if rc != nil {
		closers = append(closers, func() { rc.Close() })
		b.redis = rc
		b.otpSessions = otpstore.NewRedis(rc.Client)
	} else {
		b.otpSessions = otpstore.NewInMemory()
	}

	if len(cfg.KafkaBrokers) > 0 {
		store, err := kafkaaudit.New(cfg.KafkaBrokers, cfg.AuditTopic,
			kafkaaudit.WithFallback(b.auditStore),
			kafkaaudit.WithLogger(log),
		)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := store.EnsureTopic(ctx, 3, 1); err != nil {
			log.Warn("could not ensure audit topic, relying on broker auto-create", "topic", cfg.AuditTopic, "error", err)
		}
		closers = append(closers, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Close(flushCtx); err != nil {
				log.Warn("kafka audit flush failed", "error", err)
			}
		})
		b.auditStore = store
	}
	return b, cleanup, nil
}
