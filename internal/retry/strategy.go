// Package retry recovers blocked or broken page loads by applying an
// ordered sequence of recovery strategies between reload attempts.
package retry

import (
	"context"
	"time"

	"github.com/stocksentry/stocksentry/internal/validator"
)

// Prober abstracts the page operations the strategies need, so the
// controller can be exercised without a browser.
type Prober interface {
	// Load navigates to the target and validates the result.
	Load(ctx context.Context) (validator.Assessment, error)
	// Reload refreshes the current page without re-navigating.
	Reload(ctx context.Context) error
	// ClearState drops client-side storage on the current page.
	ClearState(ctx context.Context) error
	// Reset drops cookies and storage, parks on a neutral page and
	// reapplies the anti-fingerprinting setup.
	Reset(ctx context.Context) error
	// Humanize visits the site homepage and performs organic-looking
	// scrolls and pauses before returning.
	Humanize(ctx context.Context) error
}

// Strategy is one recovery tactic. Apply may probe the page itself; a
// nil return only means the tactic ran, the controller re-validates
// afterwards either way.
type Strategy struct {
	Name  string
	Apply func(ctx context.Context, p Prober, attempt int) error
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// DefaultStrategies returns the recovery sequence in escalation order.
// Cheap waits come first; full state resets and long sleeps later,
// once waiting alone has failed.
func DefaultStrategies(rand func(lo, hi time.Duration) time.Duration) []Strategy {
	return []Strategy{
		{
			// Escalating waits with a storage clear and reload between
			// each, bailing out as soon as the page comes back healthy.
			Name: "progressive_delay",
			Apply: func(ctx context.Context, p Prober, _ int) error {
				for _, wait := range []time.Duration{15 * time.Second, 30 * time.Second, 45 * time.Second} {
					if err := sleep(ctx, wait); err != nil {
						return err
					}
					if err := p.ClearState(ctx); err != nil {
						return err
					}
					if err := p.Reload(ctx); err != nil {
						return err
					}
					if a, err := p.Load(ctx); err == nil && a.Healthy {
						return nil
					}
				}
				return nil
			},
		},
		{
			Name: "state_reset",
			Apply: func(ctx context.Context, p Prober, _ int) error {
				if err := p.Reset(ctx); err != nil {
					return err
				}
				return sleep(ctx, 12*time.Second)
			},
		},
		{
			Name: "human_behavior",
			Apply: func(ctx context.Context, p Prober, _ int) error {
				return p.Humanize(ctx)
			},
		},
		{
			Name: "long_wait_reload",
			Apply: func(ctx context.Context, p Prober, _ int) error {
				if err := sleep(ctx, 60*time.Second); err != nil {
					return err
				}
				return p.Reload(ctx)
			},
		},
		{
			Name: "random_delay_reload",
			Apply: func(ctx context.Context, p Prober, _ int) error {
				if err := sleep(ctx, rand(10*time.Second, 30*time.Second)); err != nil {
					return err
				}
				return p.Reload(ctx)
			},
		},
	}
}
