// Package scraper runs one end-to-end monitoring pass: acquire the
// listing page through the retry cascade, discover and extract
// products, then check each one's availability.
package scraper

import (
	"context"
	"net/url"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/stocksentry/stocksentry/internal/browser"
	"github.com/stocksentry/stocksentry/internal/delay"
	"github.com/stocksentry/stocksentry/internal/model"
	"github.com/stocksentry/stocksentry/internal/validator"
)

// pageProber binds one browser page to one target URL and implements
// the operations the retry strategies need.
type pageProber struct {
	session   *browser.Session
	page      playwright.Page
	validator *validator.Validator
	policy    *delay.Policy
	target    string
	timeout   time.Duration
}

func newPageProber(session *browser.Session, page playwright.Page, v *validator.Validator, policy *delay.Policy, target string, timeout time.Duration) *pageProber {
	return &pageProber{
		session:   session,
		page:      page,
		validator: v,
		policy:    policy,
		target:    target,
		timeout:   timeout,
	}
}

func (p *pageProber) Load(ctx context.Context) (validator.Assessment, error) {
	if _, err := p.page.Goto(p.target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	}); err != nil {
		return validator.Assessment{Reason: "navigation failed"},
			&model.NavigationError{URL: p.target, Err: err}
	}

	return p.validator.Validate(ctx, p.page)
}

func (p *pageProber) Reload(ctx context.Context) error {
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
	})
	return err
}

func (p *pageProber) ClearState(ctx context.Context) error {
	return p.session.ClearState(p.page)
}

// Reset discards the browser context entirely and starts a fresh one,
// which drops cookies and storage and reinstalls the
// anti-fingerprinting init script. The old page dies with the context,
// so the prober swaps in a new one.
func (p *pageProber) Reset(ctx context.Context) error {
	if err := p.session.Recycle(); err != nil {
		return err
	}

	page, err := p.session.NewPage()
	if err != nil {
		return err
	}
	p.page = page
	return nil
}

// Humanize detours through the site homepage with organic scrolls so
// the follow-up navigation carries a plausible referer chain.
func (p *pageProber) Humanize(ctx context.Context) error {
	if homepage := originOf(p.target); homepage != "" {
		if err := p.session.WarmUp(p.page, homepage); err != nil {
			return err
		}
	} else if err := p.session.HumanizeInteraction(p.page); err != nil {
		return err
	}

	return p.policy.SleepBetween(ctx, 1*time.Second, 3*time.Second)
}

func originOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
