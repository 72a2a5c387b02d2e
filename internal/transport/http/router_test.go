package httptransport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	jwttoken "ballotguard/internal/jwt_token"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/platform/middleware/ratelimit"
	"ballotguard/pkg/requestcontext"
	"ballotguard/pkg/testutil"
)

type whoami struct{}

func (whoami) RegisterVoter(r chi.Router) {
	r.Get("/v1/whoami", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"voter_id": requestcontext.VoterID(r.Context()).String()})
	})
}

type ping struct{}

func (ping) RegisterAdmin(r chi.Router) {
	r.Get("/admin/ping", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "pong"})
	})
}

type downDB struct{}

func (downDB) PingContext(context.Context) error { return errors.New("connection refused") }

func newTestRouter(health HealthChecker) (http.Handler, *jwttoken.JWTService) {
	jwt := jwttoken.NewJWTService("router-test-key", "portal")
	reg := prometheus.NewRegistry()
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_latency"}, []string{"method", "route", "status"})
	reg.MustRegister(latency)
	return NewRouter(RouterDeps{
		Logger:         slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwt),
		AdminToken:     "committee-secret",
		Latency:        latency,
		Gatherer:       reg,
		Health:         health,
		Voter:          []VoterRoutes{whoami{}},
		Admin:          []AdminRoutes{ping{}},
	}), jwt
}

func TestVoterSurface(t *testing.T) {
	router, jwt := newTestRouter(nil)

	t.Run("missing token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/whoami"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("valid token carries the voter", func(t *testing.T) {
		voter := id.VoterID(id.NewBallotID())
		token, err := jwt.GenerateAccessToken(voter, time.Hour)
		assert.NoError(t, err)
		req := testutil.NewRequest(t, http.MethodGet, "/v1/whoami")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "voter_id", voter.String())
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})
}

func TestAdminSurface(t *testing.T) {
	router, _ := newTestRouter(nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/ping"))
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

	req := testutil.NewRequest(t, http.MethodGet, "/admin/ping")
	req.Header.Set("X-Admin-Token", "committee-secret")
	testutil.AssertStatusOK(t, testutil.DoRequest(router, req))
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := newTestRouter(nil)
	testutil.AssertStatusOK(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz")))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(t, rr)
	assert.Contains(t, rr.Body.String(), "test_latency")

	down, _ := newTestRouter(downDB{})
	testutil.AssertStatus(t, testutil.DoRequest(down, testutil.NewRequest(t, http.MethodGet, "/healthz")), http.StatusServiceUnavailable)

	testutil.AssertStatusAndError(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/nope")), http.StatusNotFound, "not_found")
}

func TestVoterRateLimit(t *testing.T) {
	jwt := jwttoken.NewJWTService("router-test-key", "portal")
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	router := NewRouter(RouterDeps{
		Logger:         logger,
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwt),
		VoterRateLimit: ratelimit.New(0.001, 1, logger).PerIP,
		Voter:          []VoterRoutes{whoami{}},
	})

	testutil.AssertStatus(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/whoami")), http.StatusUnauthorized)
	testutil.AssertStatusAndError(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/whoami")), http.StatusTooManyRequests, "rate_limited")
	testutil.AssertStatusOK(t, testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz")))
}
