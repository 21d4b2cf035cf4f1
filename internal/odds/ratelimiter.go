package odds

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWindow is the fixed accounting window of the provider's request quota.
const DefaultWindow = time.Minute

// RateLimiter is a fixed-window request counter shared by every Client in the process.
// Construct one and inject it into each client; Wait blocks once the ceiling is reached
// until the window rolls over.
type RateLimiter struct {
	limit       int
	window      time.Duration
	logger      *zap.Logger
	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewRateLimiter creates a limiter that grants at most limit requests per window.
func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = DefaultWindow
	}

	return &RateLimiter{
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// Wait blocks until a request slot is available in the current window or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		if r.windowStart.IsZero() || now.Sub(r.windowStart) >= r.window {
			r.windowStart = now
			r.count = 0
		}

		if r.count < r.limit {
			r.count++
			r.mu.Unlock()
			RateLimiterGrantsTotal.Inc()
			return nil
		}

		wait := r.window - now.Sub(r.windowStart)
		r.mu.Unlock()

		RateLimiterWaitsTotal.Inc()
		r.logger.Debug("rate-limiter-window-exhausted",
			zap.Int("limit", r.limit),
			zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining returns the number of requests still available in the current window.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.windowStart.IsZero() || time.Since(r.windowStart) >= r.window {
		return r.limit
	}

	return r.limit - r.count
}
