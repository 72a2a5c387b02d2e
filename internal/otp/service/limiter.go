package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	id "ballotguard/pkg/domain"
)

const limiterSweepSize = 10_000

// issueLimiter throttles code issuance per voter with a token bucket.
type issueLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	burst    int
	limiters map[id.VoterID]*voterLimiter
}

type voterLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIssueLimiter(every time.Duration, burst int) *issueLimiter {
	return &issueLimiter{
		every:    every,
		burst:    burst,
		limiters: make(map[id.VoterID]*voterLimiter),
	}
}

func (l *issueLimiter) Allow(voterID id.VoterID, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.limiters) >= limiterSweepSize {
		l.sweep(now)
	}
	v, ok := l.limiters[voterID]
	if !ok {
		v = &voterLimiter{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.limiters[voterID] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops limiters that have refilled completely.
func (l *issueLimiter) sweep(now time.Time) {
	idle := l.every * time.Duration(l.burst)
	for voterID, v := range l.limiters {
		if now.Sub(v.lastSeen) > idle {
			delete(l.limiters, voterID)
		}
	}
}
