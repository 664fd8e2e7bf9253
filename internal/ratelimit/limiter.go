package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests per logical endpoint. Allow consumes one
// token when it returns true; the caller must not issue the request when it
// returns false. Implementations are safe for concurrent use, which is what
// lets the scheduler and every worker share one set of counters.
type Limiter interface {
	Allow(ctx context.Context, endpoint string) bool
}

// Limit caps one endpoint at PerMinute requests with up to Burst of them
// arriving back to back.
type Limit struct {
	PerMinute int
	Burst     int
}

// MemoryLimiter keeps one token bucket per configured endpoint. Endpoints
// without a configured limit are not gated.
type MemoryLimiter struct {
	mu       sync.Mutex
	limits   map[string]Limit
	limiters map[string]*rate.Limiter
}

func NewMemoryLimiter(limits map[string]Limit) *MemoryLimiter {
	return &MemoryLimiter{
		limits:   limits,
		limiters: make(map[string]*rate.Limiter, len(limits)),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, endpoint string) bool {
	lim := l.limiter(endpoint)
	if lim == nil {
		return true
	}
	return lim.Allow()
}

func (l *MemoryLimiter) limiter(endpoint string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.limiters[endpoint]; ok {
		return lim
	}
	cfg, ok := l.limits[endpoint]
	if !ok || cfg.PerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), burst)
	l.limiters[endpoint] = lim
	return lim
}
