package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/jobboard-crawler/internal/metrics"
)

// HostLimiter holds one token bucket per host.
type HostLimiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// NewHostLimiter creates a limiter. A non-positive rps disables limiting.
func NewHostLimiter(rps float64, burst int) *HostLimiter {
	r := rate.Limit(rps)
	if rps <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait blocks until a token is available for the host of rawURL.
func (l *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	l.mu.Lock()
	limiter, exists := l.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}
