package odds

import (
	"context"
	"math/rand"
	"time"
)

// BackoffConfig controls the exponential backoff applied to rate-limited and 5xx responses.
type BackoffConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = 20%
}

// DefaultBackoff returns the backoff used when none is configured.
func DefaultBackoff(initial time.Duration) BackoffConfig {
	return BackoffConfig{
		InitialDelay:      initial,
		MaxDelay:          time.Minute,
		BackoffMultiplier: 2.0,
		JitterPercent:     0.2,
	}
}

// Delay returns the sleep before retry number attempt (0-based), with jitter applied
// and capped at MaxDelay.
func (b BackoffConfig) Delay(attempt int) time.Duration {
	delay := float64(b.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= b.BackoffMultiplier
		if b.MaxDelay > 0 && delay >= float64(b.MaxDelay) {
			delay = float64(b.MaxDelay)
			break
		}
	}

	// backoff * (1.0 + random(0, jitterPercent))
	delay *= 1.0 + rand.Float64()*b.JitterPercent

	if b.MaxDelay > 0 && delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}

	return time.Duration(delay)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
