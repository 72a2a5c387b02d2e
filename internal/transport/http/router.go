// Package httptransport assembles the chi router: shared middleware, the
// voter surface behind bearer tokens, the committee surface behind the admin
// token, and the unauthenticated health and metrics endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/httputil"
	adminmw "ballotguard/pkg/platform/middleware/admin"
	authmw "ballotguard/pkg/platform/middleware/auth"
	"ballotguard/pkg/platform/middleware/metadata"
	"ballotguard/pkg/platform/middleware/observability"
	"ballotguard/pkg/platform/middleware/request"
	"ballotguard/pkg/platform/middleware/requesttime"
)

// VoterRoutes and AdminRoutes are implemented by the bounded-context
// handlers, one per surface they serve.
type (
	VoterRoutes interface{ RegisterVoter(r chi.Router) }
	AdminRoutes interface{ RegisterAdmin(r chi.Router) }
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type RouterDeps struct {
	Logger         *slog.Logger
	TokenValidator authmw.TokenValidator
	AdminToken     string
	Latency        *prometheus.HistogramVec
	Gatherer       prometheus.Gatherer
	// Health is optional; without it /healthz only reports liveness.
	Health HealthChecker
	// VoterRateLimit, when set, runs before token validation on the voter
	// surface.
	VoterRateLimit func(http.Handler) http.Handler

	Voter []VoterRoutes
	Admin []AdminRoutes
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(observability.Recovery(deps.Logger))
	r.Use(observability.Logger(deps.Logger))
	if deps.Latency != nil {
		r.Use(observability.Latency(deps.Latency))
	}
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", healthz(deps.Health))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if deps.VoterRateLimit != nil {
			r.Use(deps.VoterRateLimit)
		}
		r.Use(authmw.RequireVoter(deps.TokenValidator, deps.Logger))
		for _, h := range deps.Voter {
			h.RegisterVoter(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(deps.AdminToken, deps.Logger))
		for _, h := range deps.Admin {
			h.RegisterAdmin(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	return r
}

func healthz(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
