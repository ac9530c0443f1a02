package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Pauser sleeps between requests. Tests swap in an instant implementation.
type Pauser interface {
	Pause(ctx context.Context, d time.Duration) error
}

// TimerPauser sleeps on a timer and returns early when ctx is done.
type TimerPauser struct{}

// Pause implements Pauser.
func (TimerPauser) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pause interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// NoPause returns immediately unless ctx is already done.
type NoPause struct{}

// Pause implements Pauser.
func (NoPause) Pause(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pause interrupted: %w", err)
	}
	return nil
}

// Jitter spreads d uniformly over [d*(1-frac), d*(1+frac)].
func Jitter(d time.Duration, frac float64) time.Duration {
	if d <= 0 || frac <= 0 {
		return d
	}
	spread := time.Duration(float64(d) * frac)
	return d - spread + randomDuration(2*spread)
}

// Between returns a random duration in [lo, hi].
func Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + randomDuration(hi-lo)
}

func randomDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)+1))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
