package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stocksentry/stocksentry/internal/delay"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/protection"
	"github.com/stocksentry/stocksentry/internal/validator"
)

// Controller drives the load-validate-recover loop for one target.
type Controller struct {
	strategies  []Strategy
	policy      *delay.Policy
	maxRetries  int
	backoffBase time.Duration
	logger      *slog.Logger
}

func NewController(policy *delay.Policy, maxRetries int) *Controller {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Controller{
		strategies:  DefaultStrategies(policy.Between),
		policy:      policy,
		maxRetries:  maxRetries,
		backoffBase: time.Second,
		logger:      slog.Default().With("component", "retry"),
	}
}

// TerminalError reports that every recovery strategy was exhausted.
type TerminalError struct {
	Attempts  int
	LastErr   error
	BlockedBy protection.Vendor
	Reason    string
}

func (e *TerminalError) Error() string {
	if e.BlockedBy != protection.VendorNone {
		return fmt.Sprintf("page unhealthy after %d attempts, blocked by %s: %s", e.Attempts, e.BlockedBy, e.Reason)
	}
	return fmt.Sprintf("page unhealthy after %d attempts: %s", e.Attempts, e.Reason)
}

func (e *TerminalError) Unwrap() error { return e.LastErr }

// EnsureHealthy loads the target and, while the result is unhealthy,
// walks the strategy sequence in order with growing backoff between
// attempts. It returns the first healthy assessment, or a
// TerminalError carrying the last block verdict.
func (c *Controller) EnsureHealthy(ctx context.Context, p Prober) (validator.Assessment, error) {
	assessment, err := p.Load(ctx)
	if err == nil && assessment.Healthy {
		return assessment, nil
	}

	lastAssessment := assessment
	lastErr := err

	budget := c.maxRetries
	if budget > len(c.strategies) {
		budget = len(c.strategies)
	}

	for i := 0; i < budget; i++ {
		if ctx.Err() != nil {
			return lastAssessment, ctx.Err()
		}

		strategy := c.strategies[i]
		attempt := i + 1

		c.logger.Info("applying recovery strategy",
			"strategy", strategy.Name, "attempt", attempt,
			"reason", lastAssessment.Reason, "blocked_by", lastAssessment.BlockedBy)
		metrics.RecoveryStrategies.WithLabelValues(strategy.Name).Inc()

		if err := strategy.Apply(ctx, p, attempt); err != nil {
			if ctx.Err() != nil {
				return lastAssessment, ctx.Err()
			}
			c.logger.Warn("recovery strategy failed", "strategy", strategy.Name, "error", err)
		}

		if err := sleep(ctx, c.policy.Backoff(attempt, c.backoffBase, 2*c.backoffBase)); err != nil {
			return lastAssessment, err
		}

		assessment, err = p.Load(ctx)
		if err == nil && assessment.Healthy {
			c.logger.Info("page recovered", "strategy", strategy.Name, "attempt", attempt)
			return assessment, nil
		}

		lastAssessment = assessment
		lastErr = err
	}

	return lastAssessment, &TerminalError{
		Attempts:  budget + 1,
		LastErr:   lastErr,
		BlockedBy: lastAssessment.BlockedBy,
		Reason:    lastAssessment.Reason,
	}
}
