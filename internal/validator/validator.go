package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/stocksentry/stocksentry/internal/diagnostics"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/protection"
)

// Validator runs the browser-side load checks: navigation settle,
// content stabilization and the pure content assessment.
type Validator struct {
	captcha *protection.CaptchaHandler
	diag    *diagnostics.Recorder
	logger  *slog.Logger

	readyTimeout    time.Duration
	stabilityWait   time.Duration
	stabilityChecks int
	stableNeeded    int
}

func New(captcha *protection.CaptchaHandler, diag *diagnostics.Recorder) *Validator {
	return &Validator{
		captcha:         captcha,
		diag:            diag,
		logger:          slog.Default().With("component", "validator"),
		readyTimeout:    10 * time.Second,
		stabilityWait:   2 * time.Second,
		stabilityChecks: 3,
		stableNeeded:    2,
	}
}

// WaitForReady blocks until the document finishes loading and the page
// source stops growing. An unstable page is reported but not fatal,
// since some sites mutate the DOM continuously.
func (v *Validator) WaitForReady(ctx context.Context, page playwright.Page) (bool, error) {
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: playwright.Float(float64(v.readyTimeout.Milliseconds())),
	}); err != nil {
		return false, fmt.Errorf("page did not reach load state: %w", err)
	}

	stable := 0
	previousLen := 0

	for i := 0; i < v.stabilityChecks; i++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(v.stabilityWait):
		}

		content, err := page.Content()
		if err != nil {
			return false, fmt.Errorf("reading page content: %w", err)
		}

		currentLen := len(content)
		if currentLen == previousLen && currentLen > 0 {
			stable++
			if stable >= v.stableNeeded {
				v.logger.Debug("page content stabilized",
					"after", time.Duration(i+1)*v.stabilityWait, "length", currentLen)
				return true, nil
			}
		} else {
			stable = 0
			previousLen = currentLen
		}
	}

	v.logger.Debug("page content may not be fully stable, proceeding anyway")
	return false, nil
}

// Validate runs WaitForReady followed by the content assessment. When
// the block turns out to be a reCAPTCHA challenge it dispatches the
// captcha handler once and re-assesses the page.
func (v *Validator) Validate(ctx context.Context, page playwright.Page) (Assessment, error) {
	if _, err := v.WaitForReady(ctx, page); err != nil {
		return Assessment{Reason: "timeout"}, err
	}

	assessment, err := v.assess(page)
	if err != nil {
		return assessment, err
	}

	if !assessment.Healthy && v.captcha != nil {
		content, cerr := page.Content()
		title, _ := page.Title()
		if cerr == nil && protection.IsRecaptcha(content, title) {
			if serr := v.captcha.Solve(ctx, page); serr != nil {
				v.logger.Warn("recaptcha handling failed", "error", serr)
			} else {
				assessment, err = v.assess(page)
				if err != nil {
					return assessment, err
				}
			}
		}
	}

	if !assessment.Healthy {
		metrics.PagesValidated.WithLabelValues("invalid").Inc()
		v.logger.Warn("page validation failed",
			"url", page.URL(), "reason", assessment.Reason, "blocked_by", assessment.BlockedBy)
		if v.diag != nil {
			v.diag.Capture(page, "invalid")
		}
		return assessment, nil
	}

	metrics.PagesValidated.WithLabelValues("healthy").Inc()
	return assessment, nil
}

func (v *Validator) assess(page playwright.Page) (Assessment, error) {
	content, err := page.Content()
	if err != nil {
		return Assessment{Reason: "could not read page content"}, fmt.Errorf("reading page content: %w", err)
	}
	title, _ := page.Title()

	return AssessContent(content, title, page.URL()), nil
}
