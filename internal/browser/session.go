// Package browser owns the Playwright lifecycle for a scraping run.
// A Session wraps one browser context; the page-facing packages never
// touch the Playwright runtime directly.
package browser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "en-US,en;q=0.9",
		TimezoneID:     "America/New_York",
		Locale:         "en-US",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Encoding": "gzip, deflate, br",
			"DNT":             "1",
		},
	}
}

func NewSession(opts *Options) (*Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
			"--start-maximized",
			"--user-agent=" + opts.UserAgent,
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := newContext(browser, opts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, err
	}

	return &Session{
		pw:      pw,
		browser: browser,
		context: context,
		opts:    opts,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func newContext(browser playwright.Browser, opts *Options) (playwright.BrowserContext, error) {
	headers := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		headers[k] = v
	}
	if opts.AcceptLanguage != "" {
		headers["Accept-Language"] = opts.AcceptLanguage
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		TimezoneId:        &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := context.AddInitScript(playwright.Script{
		Content: playwright.String(stealthScript),
	}); err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}

	return context, nil
}

func (s *Session) NewPage() (playwright.Page, error) {
	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	return page, nil
}

func (s *Session) Context() playwright.BrowserContext {
	return s.context
}

// Alive reports whether the underlying browser process is still
// reachable.
func (s *Session) Alive() bool {
	return s.browser != nil && s.browser.IsConnected()
}

// ClearState drops cookies and wipes local and session storage on the
// given page. Recovery strategies use it to shed tracking identifiers
// planted by a protection vendor.
func (s *Session) ClearState(page playwright.Page) error {
	if err := s.context.ClearCookies(); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}

	if page != nil {
		if _, err := page.Evaluate(`() => {
			try { localStorage.clear(); } catch (e) {}
			try { sessionStorage.clear(); } catch (e) {}
		}`); err != nil {
			s.logger.Debug("storage clear failed", "error", err)
		}
	}

	s.logger.Info("cleared cookies and storage")
	return nil
}

// Recycle tears down the current context and builds a fresh one with
// the same options. Pages created before the call are dead afterwards.
func (s *Session) Recycle() error {
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			s.logger.Warn("failed to close stale context", "error", err)
		}
	}

	context, err := newContext(s.browser, s.opts)
	if err != nil {
		return fmt.Errorf("failed to recycle context: %w", err)
	}

	s.context = context
	s.logger.Info("browser context recycled")
	return nil
}

// WarmUp visits the site root before the real target so the session
// arrives with a plausible referer and first-party cookies.
func (s *Session) WarmUp(page playwright.Page, homepageURL string) error {
	if homepageURL == "" {
		return nil
	}

	if _, err := page.Goto(homepageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.opts.Timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("homepage warm-up failed: %w", err)
	}

	time.Sleep(time.Duration(1000+rand.Intn(2000)) * time.Millisecond)
	return s.HumanizeInteraction(page)
}

// HumanizeInteraction adds human-like behavior to page interactions
func (s *Session) HumanizeInteraction(page playwright.Page) error {
	for i := 0; i < 3; i++ {
		x := float64(100 + rand.Intn(800))
		y := float64(100 + rand.Intn(500))
		page.Mouse().Move(x, y)
		time.Sleep(time.Millisecond * time.Duration(200+rand.Intn(300)))
	}

	page.Evaluate(`window.scrollBy(0, Math.random() * 300)`)
	time.Sleep(time.Second)

	return nil
}

func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
