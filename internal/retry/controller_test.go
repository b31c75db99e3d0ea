package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksentry/stocksentry/internal/delay"
	"github.com/stocksentry/stocksentry/internal/protection"
	"github.com/stocksentry/stocksentry/internal/validator"
)

type fakeProber struct {
	loads       int
	healthyAt   int // load number that first returns healthy, 0 for never
	assessments []validator.Assessment
}

func (f *fakeProber) Load(ctx context.Context) (validator.Assessment, error) {
	f.loads++
	if f.healthyAt > 0 && f.loads >= f.healthyAt {
		return validator.Assessment{Healthy: true}, nil
	}
	a := validator.Assessment{
		Reason:    "blocked by incapsula protection",
		BlockedBy: protection.VendorIncapsula,
	}
	f.assessments = append(f.assessments, a)
	return a, nil
}

func (f *fakeProber) Reload(ctx context.Context) error     { return nil }
func (f *fakeProber) ClearState(ctx context.Context) error { return nil }
func (f *fakeProber) Reset(ctx context.Context) error      { return nil }
func (f *fakeProber) Humanize(ctx context.Context) error   { return nil }

func fastStrategies(applied *[]string) []Strategy {
	names := []string{"progressive_delay", "state_reset", "human_behavior", "long_wait_reload", "random_delay_reload"}
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		name := name
		strategies = append(strategies, Strategy{
			Name: name,
			Apply: func(ctx context.Context, p Prober, attempt int) error {
				*applied = append(*applied, name)
				return nil
			},
		})
	}
	return strategies
}

func newTestController(applied *[]string, maxRetries int) *Controller {
	c := NewController(delay.NewPolicy(time.Millisecond, 2*time.Millisecond), maxRetries)
	c.strategies = fastStrategies(applied)
	c.backoffBase = time.Millisecond
	return c
}

func TestEnsureHealthyFirstTry(t *testing.T) {
	var applied []string
	c := newTestController(&applied, 5)
	p := &fakeProber{healthyAt: 1}

	a, err := c.EnsureHealthy(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, a.Healthy)
	assert.Equal(t, 1, p.loads)
	assert.Empty(t, applied)
}

func TestEnsureHealthyRecoversOnThirdStrategy(t *testing.T) {
	var applied []string
	c := newTestController(&applied, 5)
	// Loads: initial, after strategy 1, after strategy 2, after strategy 3.
	p := &fakeProber{healthyAt: 4}

	a, err := c.EnsureHealthy(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, a.Healthy)
	assert.Equal(t, []string{"progressive_delay", "state_reset", "human_behavior"}, applied)
	assert.NotContains(t, applied, "long_wait_reload")
	assert.NotContains(t, applied, "random_delay_reload")
}

func TestEnsureHealthyExhaustsStrategies(t *testing.T) {
	var applied []string
	c := newTestController(&applied, 10)
	p := &fakeProber{healthyAt: 0}

	_, err := c.EnsureHealthy(context.Background(), p)

	require.Error(t, err)
	var terminal *TerminalError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, protection.VendorIncapsula, terminal.BlockedBy)
	assert.Equal(t, 6, terminal.Attempts)
	assert.Len(t, applied, 5)
}

func TestEnsureHealthyHonorsMaxRetries(t *testing.T) {
	var applied []string
	c := newTestController(&applied, 2)
	p := &fakeProber{healthyAt: 0}

	_, err := c.EnsureHealthy(context.Background(), p)

	require.Error(t, err)
	assert.Equal(t, []string{"progressive_delay", "state_reset"}, applied)
}

func TestEnsureHealthyStopsOnContextCancel(t *testing.T) {
	var applied []string
	c := newTestController(&applied, 5)
	p := &fakeProber{healthyAt: 0}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.EnsureHealthy(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, applied)
}

func TestDefaultStrategiesOrder(t *testing.T) {
	policy := delay.NewPolicy(time.Millisecond, 2*time.Millisecond)
	strategies := DefaultStrategies(policy.Between)

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		"progressive_delay",
		"state_reset",
		"human_behavior",
		"long_wait_reload",
		"random_delay_reload",
	}, names)
}
