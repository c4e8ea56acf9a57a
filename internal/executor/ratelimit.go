package executor

import (
	"context"
	"sync"
	"time"
)

// rateLimiter caps invocation frequency with a sliding one-second window.
// Timestamps older than the window are pruned lazily on each check; when the
// window is full, the caller sleeps until the oldest call ages out. Only the
// calling goroutine is suspended.
//
// A token bucket (golang.org/x/time/rate) was considered and rejected: its
// continuous refill lets the (max+1)-th call through after 1/max seconds,
// whereas the gateway's contract is a hard per-window cap.
type rateLimiter struct {
	mu    sync.Mutex
	max   int
	calls []time.Time
}

const rateWindow = time.Second

// newRateLimiter creates a limiter allowing max calls per second. max <= 0
// disables limiting.
func newRateLimiter(max int) *rateLimiter {
	return &rateLimiter{max: max}
}

// wait blocks until the caller may proceed, then records the call. It
// returns early with the context error if ctx is done while waiting.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl.max <= 0 {
		return nil
	}

	for {
		rl.mu.Lock()
		now := time.Now()
		rl.prune(now)
		if len(rl.calls) < rl.max {
			rl.calls = append(rl.calls, now)
			rl.mu.Unlock()
			return nil
		}
		delay := rateWindow - now.Sub(rl.calls[0])
		rl.mu.Unlock()

		if delay < 0 {
			delay = 0
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops timestamps that have left the window. Callers hold mu.
func (rl *rateLimiter) prune(now time.Time) {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(rl.calls) && !rl.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.calls = append(rl.calls[:0], rl.calls[i:]...)
	}
}
