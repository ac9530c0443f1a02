package session

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// RetryPolicy is a jittered exponential backoff with a separate cooldown for blocked sessions.
type RetryPolicy struct {
	MaxAttempts int
	// BlockedMaxAttempts caps attempts once the board answers with a block. Zero means
	// MaxAttempts.
	BlockedMaxAttempts int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	BlockCooldownMin   time.Duration
	BlockCooldownMax   time.Duration
}

// DefaultRetryPolicy returns three attempts, 2-5s between them, and two attempts with a
// 10-15s cooldown after a 403.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		BlockedMaxAttempts: 2,
		BaseDelay:          2 * time.Second,
		MaxDelay:           5 * time.Second,
		BlockCooldownMin:   10 * time.Second,
		BlockCooldownMax:   15 * time.Second,
	}
}

// ShouldRetry decides whether attempt (1-based) may be followed by another.
func (p RetryPolicy) ShouldRetry(err error, attempt int) bool {
	limit := p.MaxAttempts
	if crawler.IsBlocked(err) && p.BlockedMaxAttempts > 0 {
		limit = min(limit, p.BlockedMaxAttempts)
	}
	if attempt >= limit {
		return false
	}
	return crawler.IsRetryable(err)
}

// Backoff returns the wait before the attempt after attempt (1-based) failed with err.
func (p RetryPolicy) Backoff(err error, attempt int) time.Duration {
	if crawler.IsBlocked(err) {
		return Between(p.BlockCooldownMin, p.BlockCooldownMax)
	}
	ceiling := float64(p.BaseDelay) * math.Pow(2, float64(max(attempt-1, 0)))
	if ceiling > float64(p.MaxDelay) {
		ceiling = float64(p.MaxDelay)
	}
	return Between(p.BaseDelay, time.Duration(ceiling))
}

// Retrier runs an operation under a RetryPolicy.
type Retrier struct {
	Policy RetryPolicy
	Pauser Pauser
	Logger *zap.Logger
}

// NewRetrier builds a Retrier with a timer pauser.
func NewRetrier(policy RetryPolicy, logger *zap.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{Policy: policy, Pauser: TimerPauser{}, Logger: logger}
}

// Do calls op until it succeeds, returns a non-retryable error or attempts run out.
// The last error is returned.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context, attempt int) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", label, ctxErr)
		}
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		if !r.Policy.ShouldRetry(err, attempt) {
			return err
		}
		wait := r.Policy.Backoff(err, attempt)
		r.Logger.Warn("retrying",
			zap.String("op", label),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Bool("blocked", crawler.IsBlocked(err)),
			zap.Error(err),
		)
		if pauseErr := r.Pauser.Pause(ctx, wait); pauseErr != nil {
			return err
		}
	}
}
