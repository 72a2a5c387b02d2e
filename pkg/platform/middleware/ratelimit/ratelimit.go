// Package ratelimit throttles requests per client IP with token buckets.
//
// Buckets live in process memory. Behind several replicas each replica
// enforces its own share; the OTP and ballot paths keep their own
// correctness guarantees regardless.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "ballotguard/pkg/domain-errors"
	"ballotguard/pkg/platform/httputil"
	"ballotguard/pkg/requestcontext"
)

const sweepSize = 50_000

type Middleware struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	buckets  map[string]*bucket
	logger   *slog.Logger
	now      func() time.Time
	disabled bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Middleware) {
		m.now = now
	}
}

func New(requestsPerSecond float64, burst int, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// PerIP rejects requests once the client's bucket is empty.
func (m *Middleware) PerIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		allowed, remaining, retryAfter := m.take(ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.burst))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			m.logger.WarnContext(ctx, "request rate limited",
				"request_id", requestcontext.RequestID(ctx),
				"client_ip", ip,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) take(key string) (allowed bool, remaining int, retryAfter int) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.buckets) >= sweepSize {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	allowed = b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	remaining = max(int(math.Floor(tokens)), 0)
	if !allowed {
		retryAfter = max(int(math.Ceil((1-tokens)/float64(m.limit))), 1)
	}
	return allowed, remaining, retryAfter
}

// sweep drops buckets that have refilled completely.
func (m *Middleware) sweep(now time.Time) {
	full := time.Duration(float64(m.burst) / float64(m.limit) * float64(time.Second))
	for key, b := range m.buckets {
		if now.Sub(b.lastSeen) > full {
			delete(m.buckets, key)
		}
	}
}
