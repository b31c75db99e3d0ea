package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/stocksentry/stocksentry/internal/availability"
	"github.com/stocksentry/stocksentry/internal/browser"
	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/delay"
	"github.com/stocksentry/stocksentry/internal/diagnostics"
	"github.com/stocksentry/stocksentry/internal/discovery"
	"github.com/stocksentry/stocksentry/internal/dom"
	"github.com/stocksentry/stocksentry/internal/extractor"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/model"
	"github.com/stocksentry/stocksentry/internal/retry"
	"github.com/stocksentry/stocksentry/internal/validator"
)

// Service drives one complete scrape run against the configured
// listing page. All navigation is strictly sequential on one browser
// page so the traffic reads as a single human session.
type Service struct {
	// mu serializes all navigation. The session is shared, and two
	// concurrent navigations on one browser would interleave cookies
	// and page state that must read as a single human session.
	mu        sync.Mutex
	cfg       config.MonitorConfig
	sessions  *browser.SessionPool
	validator *validator.Validator
	engine    *discovery.Engine
	extract   *extractor.Extractor
	policy    *delay.Policy
	limiter   *delay.AdaptiveLimiter
	diag      *diagnostics.Recorder
	logger    *slog.Logger
}

func New(cfg *config.Config, sessions *browser.SessionPool, v *validator.Validator, diag *diagnostics.Recorder) *Service {
	return &Service{
		cfg:       cfg.Monitor,
		sessions:  sessions,
		validator: v,
		engine:    discovery.NewEngine(),
		extract:   extractor.New(),
		policy:    delay.NewPolicy(cfg.Monitor.DelayMin, cfg.Monitor.DelayMax),
		limiter:   delay.NewAdaptiveLimiter(cfg.Monitor.DelayMin, cfg.Monitor.DelayMax),
		diag:      diag,
		logger:    slog.Default().With("component", "scraper"),
	}
}

// Run performs one pass and returns the product batch. Per-product
// failures are recorded on the product and never abort the batch; a
// terminal listing-page failure aborts with the blocking vendor in the
// error.
func (s *Service) Run(ctx context.Context) (*model.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := &model.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	started := time.Now()
	defer func() {
		result.FinishedAt = time.Now().UTC()
		metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	session, err := s.sessions.Get()
	if err != nil {
		metrics.RunsTotal.WithLabelValues("setup_error").Inc()
		return result, err
	}

	page, err := session.NewPage()
	if err != nil {
		metrics.RunsTotal.WithLabelValues("setup_error").Inc()
		return result, err
	}

	// The prober may replace the page during recovery; always close
	// and read its current one.
	prober := newPageProber(session, page, s.validator, s.policy, s.cfg.TargetURL, s.cfg.PageTimeout)
	defer func() { prober.page.Close() }()
	controller := retry.NewController(s.policy, s.cfg.MaxRetries)

	if _, err := controller.EnsureHealthy(ctx, prober); err != nil {
		var terminal *retry.TerminalError
		if errors.As(err, &terminal) {
			metrics.RunsTotal.WithLabelValues("blocked").Inc()
			metrics.BlockedTotal.WithLabelValues(string(terminal.BlockedBy)).Inc()
			s.diag.Capture(prober.page, "terminal_block")
			return result, &model.ValidationFailure{
				URL:       s.cfg.TargetURL,
				Reason:    terminal.Reason,
				BlockedBy: string(terminal.BlockedBy),
			}
		}
		metrics.RunsTotal.WithLabelValues("navigation_error").Inc()
		return result, err
	}

	products := s.discoverProducts(ctx, prober.page)
	result.Products = products

	checker := availability.NewChecker(&pageOpener{prober: prober})
	for _, product := range products {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if product.URL == "" {
			product.SetAvailability(model.StatusUnknown, "no detail page url")
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}

		result.TotalChecked++
		if err := checker.Enrich(ctx, product); err != nil {
			s.limiter.RecordError()
			s.logger.Warn("availability check failed",
				"title", product.Title, "url", product.URL, "error", err)
			continue
		}
		s.limiter.RecordSuccess()

		if product.AvailabilityStatus == model.StatusNotAvailable {
			result.SoldOutCount++
		}
	}

	available := len(result.Available())
	metrics.ProductsAvailable.Set(float64(available))
	metrics.RunsTotal.WithLabelValues("ok").Inc()

	s.logger.Info("run finished",
		"run_id", result.RunID, "products", len(products),
		"checked", result.TotalChecked, "available", available,
		"sold_out", result.SoldOutCount)
	return result, nil
}

func (s *Service) discoverProducts(ctx context.Context, page playwright.Page) []*model.Product {
	domPage := dom.FromPlaywright(page)
	candidates := s.engine.Discover(ctx, domPage)
	if len(candidates) == 0 {
		s.diag.Capture(page, "no_products")
		return nil
	}

	var products []*model.Product
	for _, candidate := range candidates {
		product, err := s.extract.Extract(candidate.Element, domPage.URL())
		if err != nil {
			if errors.Is(err, model.ErrExtractionSkip) {
				continue
			}
			s.logger.Debug("extraction failed", "error", err)
			continue
		}

		if !s.matchesNameFilters(product.Title) {
			continue
		}
		products = append(products, product)
	}

	metrics.ProductsDiscovered.Add(float64(len(products)))
	return products
}

// matchesNameFilters keeps only products whose title contains one of
// the configured keywords. An empty filter list keeps everything.
func (s *Service) matchesNameFilters(title string) bool {
	if len(s.cfg.NameFilters) == 0 {
		return true
	}

	lower := strings.ToLower(title)
	for _, filter := range s.cfg.NameFilters {
		if strings.Contains(lower, strings.ToLower(filter)) {
			return true
		}
	}
	return false
}

// CheckURL opens one product page and reports its availability. Used
// by the API's on-demand check endpoint.
func (s *Service) CheckURL(ctx context.Context, url string) (availability.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return availability.Result{Status: model.StatusError, Reason: err.Error()}, err
	}

	session, err := s.sessions.Get()
	if err != nil {
		return availability.Result{Status: model.StatusError, Reason: err.Error()}, err
	}

	page, err := session.NewPage()
	if err != nil {
		return availability.Result{Status: model.StatusError, Reason: err.Error()}, err
	}

	prober := newPageProber(session, page, s.validator, s.policy, url, s.cfg.PageTimeout)
	defer func() { prober.page.Close() }()

	checker := availability.NewChecker(&pageOpener{prober: prober})
	return checker.Check(ctx, url)
}

// pageOpener reuses the run's single page for detail-page visits,
// keeping navigation sequential on one session.
type pageOpener struct {
	prober *pageProber
}

func (o *pageOpener) Open(ctx context.Context, url string) (dom.Page, validator.Assessment, error) {
	p := o.prober
	detail := newPageProber(p.session, p.page, p.validator, p.policy, url, p.timeout)
	assessment, err := detail.Load(ctx)
	if err != nil {
		return nil, assessment, err
	}
	return dom.FromPlaywright(detail.page), assessment, nil
}
