// Package delay produces the human-plausible randomized waits used
// between navigations, retries, and page interactions.
package delay

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Policy hands out jittered durations inside a fixed [min, max] band.
type Policy struct {
	min time.Duration
	max time.Duration
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPolicy(min, max time.Duration) *Policy {
	if max < min {
		max = min
	}
	return &Policy{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Jitter returns a random duration in [min, max].
func (p *Policy) Jitter() time.Duration {
	return p.Between(p.min, p.max)
}

// Between returns a random duration in [lo, hi].
func (p *Policy) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rng.Int63n(int64(hi-lo)))
}

// Sleep blocks for one jittered interval or until the context is done.
func (p *Policy) Sleep(ctx context.Context) error {
	return sleep(ctx, p.Jitter())
}

// SleepBetween blocks for a random duration in [lo, hi] or until the
// context is done.
func (p *Policy) SleepBetween(ctx context.Context, lo, hi time.Duration) error {
	return sleep(ctx, p.Between(lo, hi))
}

// Backoff returns an exponential backoff for the given 1-based attempt
// with up to extra of random jitter added on top.
func (p *Policy) Backoff(attempt int, base, extra time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d + p.Between(0, extra)
}

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
