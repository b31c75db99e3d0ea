package delay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitterStaysInsideBand(t *testing.T) {
	p := NewPolicy(100*time.Millisecond, 300*time.Millisecond)

	for i := 0; i < 200; i++ {
		d := p.Jitter()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestBetweenDegenerateRange(t *testing.T) {
	p := NewPolicy(time.Second, time.Second)
	assert.Equal(t, time.Second, p.Jitter())
	assert.Equal(t, 2*time.Second, p.Between(2*time.Second, time.Second))
}

func TestBackoffGrowsExponentially(t *testing.T) {
	p := NewPolicy(0, 0)

	first := p.Backoff(1, time.Second, 0)
	second := p.Backoff(2, time.Second, 0)
	third := p.Backoff(3, time.Second, 0)

	assert.Equal(t, time.Second, first)
	assert.Equal(t, 2*time.Second, second)
	assert.Equal(t, 4*time.Second, third)
}

func TestSleepHonorsContextCancellation(t *testing.T) {
	p := NewPolicy(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Sleep(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAdaptiveLimiterWidensAfterErrors(t *testing.T) {
	l := NewAdaptiveLimiter(time.Second, 2*time.Second)

	for i := 0; i < 3; i++ {
		l.RecordError()
	}

	assert.Equal(t, 1500*time.Millisecond, l.policy.min)
	assert.Equal(t, 3*time.Second, l.policy.max)
}

func TestAdaptiveLimiterNarrowsAfterSuccesses(t *testing.T) {
	l := NewAdaptiveLimiter(10*time.Second, 20*time.Second)

	for i := 0; i < 6; i++ {
		l.RecordSuccess()
	}

	assert.Equal(t, 9*time.Second, l.policy.min)
}
