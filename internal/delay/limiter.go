package delay

import (
	"context"
	"sync"
	"time"
)

// AdaptiveLimiter spaces successive navigations with a jittered delay
// band that widens after repeated failures and slowly narrows again
// after a streak of successes.
type AdaptiveLimiter struct {
	policy        *Policy
	lastAction    time.Time
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	mu            sync.Mutex
}

func NewAdaptiveLimiter(min, max time.Duration) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		policy:        NewPolicy(min, max),
		maxErrorCount: 3,
		backoffFactor: 1.5,
	}
}

// Wait blocks until at least one jittered interval has passed since
// the previous action.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	a.mu.Lock()
	elapsed := time.Since(a.lastAction)
	target := a.policy.Jitter()
	a.mu.Unlock()

	if elapsed < target {
		if err := sleep(ctx, target-elapsed); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.lastAction = time.Now()
	a.mu.Unlock()
	return nil
}

func (a *AdaptiveLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.policy.min) * 0.9)
		if newMin < 500*time.Millisecond {
			newMin = 500 * time.Millisecond
		}
		a.policy.min = newMin
		a.successCount = 0
	}
}

func (a *AdaptiveLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.policy.min) * a.backoffFactor)
		newMax := time.Duration(float64(a.policy.max) * a.backoffFactor)

		if newMin > 60*time.Second {
			newMin = 60 * time.Second
		}
		if newMax > 120*time.Second {
			newMax = 120 * time.Second
		}

		a.policy.min = newMin
		a.policy.max = newMax
		a.errorCount = 0
	}
}
