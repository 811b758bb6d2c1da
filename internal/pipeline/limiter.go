package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalLimiter implements domain.Limiter with in-process pacing: callers are
// spaced at least delay apart regardless of key. It is the fallback when no
// Redis instance is configured, and only protects a single process.
type LocalLimiter struct {
	mu     sync.Mutex
	delay  time.Duration
	nextAt time.Time
}

// NewLocalLimiter creates a LocalLimiter enforcing the given minimum delay
// between calls. A delay <= 0 makes Wait a no-op.
func NewLocalLimiter(delay time.Duration) *LocalLimiter {
	return &LocalLimiter{delay: delay}
}

// Wait blocks until the pacing delay since the previous call has elapsed, or
// the context is cancelled.
func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	if l.delay <= 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.nextAt.Sub(now)
	if wait < 0 {
		wait = 0
	}
	l.nextAt = now.Add(wait + l.delay)
	l.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait %s: %w", key, ctx.Err())
	case <-timer.C:
		return nil
	}
}
