package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/stocksentry/stocksentry/internal/artifacts"
	"github.com/stocksentry/stocksentry/internal/browser"
	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/dedup"
	"github.com/stocksentry/stocksentry/internal/diagnostics"
	"github.com/stocksentry/stocksentry/internal/fetch"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/model"
	"github.com/stocksentry/stocksentry/internal/notify"
	"github.com/stocksentry/stocksentry/internal/protection"
	"github.com/stocksentry/stocksentry/internal/scraper"
	"github.com/stocksentry/stocksentry/internal/store"
	"github.com/stocksentry/stocksentry/internal/validator"
	"github.com/stocksentry/stocksentry/pkg/logger"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Monitor.Schedule == "" {
		if err := app.runOnce(ctx); err != nil {
			log.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Monitor.Schedule, func() {
		if err := app.runOnce(ctx); err != nil {
			log.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		log.Error("invalid schedule", "schedule", cfg.Monitor.Schedule, "error", err)
		os.Exit(1)
	}

	log.Info("monitor scheduled", "schedule", cfg.Monitor.Schedule, "target", cfg.Monitor.TargetURL)
	scheduler.Start()

	<-ctx.Done()
	log.Info("shutting down")
	<-scheduler.Stop().Done()
}

// restockNotifier is what finishRun needs from the Telegram client.
type restockNotifier interface {
	Enabled() bool
	Notify(ctx context.Context, result *model.RunResult) bool
}

type app struct {
	cfg      *config.Config
	diag     *diagnostics.Recorder
	notifier restockNotifier
	writer   *artifacts.Writer
	alerts   *dedup.Suppressor
	fetcher  *fetch.Client
	store    *store.Store
	redis    *redis.Client
	logger   *slog.Logger
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		diag:     diagnostics.NewRecorder(cfg.Diagnostics.Dir, cfg.Diagnostics.Enabled),
		notifier: notify.NewTelegram(cfg.Telegram),
		writer:   artifacts.NewWriter(cfg.Monitor.OutputDir),
		fetcher:  fetch.NewClient(cfg.Fetch, cfg.Browser.UserAgents),
		logger:   slog.Default().With("component", "monitor"),
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient.Close()
			redisClient = nil
		}
	}
	a.redis = redisClient
	a.alerts = dedup.New(redisClient, cfg.Redis.AlertTTL)

	if cfg.Database.Enabled {
		st, err := store.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.store = st
	}

	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}

// runOnce executes one monitoring pass, via the JSON endpoint when one
// is configured and through the browser otherwise.
func (a *app) runOnce(ctx context.Context) error {
	var result *model.RunResult
	var err error

	if a.cfg.Monitor.TargetJSONURL != "" {
		result, err = a.runJSON(ctx)
	} else {
		result, err = a.runBrowser(ctx)
	}

	if result != nil {
		a.finishRun(ctx, result)
	}
	return err
}

func (a *app) runBrowser(ctx context.Context) (*model.RunResult, error) {
	opts := browser.DefaultOptions()
	opts.Headless = a.cfg.Browser.Headless
	opts.Timeout = a.cfg.Browser.Timeout
	opts.Locale = a.cfg.Browser.Locale
	opts.TimezoneID = a.cfg.Browser.TimezoneID
	opts.AcceptLanguage = a.cfg.Browser.AcceptLanguage
	opts.ProxyServer = a.cfg.Browser.ProxyServer
	opts.ViewportWidth = a.cfg.Browser.ViewportWidth
	opts.ViewportHeight = a.cfg.Browser.ViewportHeight
	if len(a.cfg.Browser.UserAgents) > 0 {
		opts.UserAgent = a.cfg.Browser.UserAgents[0]
	}

	sessions := browser.NewSessionPool(opts)
	if _, err := sessions.Get(); err != nil {
		return nil, err
	}
	defer sessions.Close()

	captcha := protection.NewCaptchaHandler(nil)
	v := validator.New(captcha, a.diag)
	service := scraper.New(a.cfg, sessions, v, a.diag)

	return service.Run(ctx)
}

func (a *app) runJSON(ctx context.Context) (*model.RunResult, error) {
	result := &model.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	payload, raw, err := a.fetcher.FetchJSON(ctx, a.cfg.Monitor.TargetJSONURL)
	if err != nil {
		if raw != "" {
			a.writer.WriteRawDump("catalog", raw)
		}
		metrics.RunsTotal.WithLabelValues("fetch_error").Inc()
		return result, err
	}

	products := fetch.ProductsFromPayload(payload)
	if len(products) == 0 {
		a.writer.WriteRawDump("catalog_empty", raw)
	}

	result.Products = fetch.FilterByName(products, a.cfg.Monitor.NameFilters)
	result.TotalChecked = len(result.Products)
	for _, p := range result.Products {
		if p.AvailabilityStatus == model.StatusNotAvailable {
			result.SoldOutCount++
		}
	}
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	return result, nil
}

// finishRun persists the batch and sends alerts for products that were
// not already announced within the dedup window.
func (a *app) finishRun(ctx context.Context, result *model.RunResult) {
	if _, err := a.writer.WriteAvailable(result); err != nil {
		a.logger.Warn("writing artifacts failed", "error", err)
	}
	if _, err := a.writer.WriteRun(result); err != nil {
		a.logger.Warn("writing run record failed", "error", err)
	}

	if a.store != nil {
		if err := a.store.SaveRun(ctx, result); err != nil {
			a.logger.Warn("persisting run failed", "error", err)
		}
	}

	if !a.notifier.Enabled() {
		return
	}

	fresh, claimed := freshAlerts(ctx, a.alerts, result)
	if len(fresh.Available()) == 0 {
		return
	}

	if !a.notifier.Notify(ctx, fresh) {
		// A claimed key with no delivered alert would silence the
		// restock for the whole TTL window. Give the keys back so the
		// next run retries.
		a.logger.Warn("alert delivery incomplete, releasing dedup keys", "keys", len(claimed))
		for _, key := range claimed {
			a.alerts.Release(ctx, key)
		}
	}
}

// freshAlerts strips available products whose alert already fired
// recently, so a restock is announced once per TTL window. It returns
// the dedup keys claimed for this batch so the caller can release them
// if delivery fails.
func freshAlerts(ctx context.Context, alerts *dedup.Suppressor, result *model.RunResult) (*model.RunResult, []string) {
	fresh := &model.RunResult{
		RunID:        result.RunID,
		StartedAt:    result.StartedAt,
		FinishedAt:   result.FinishedAt,
		TotalChecked: result.TotalChecked,
		SoldOutCount: result.SoldOutCount,
	}

	var claimed []string
	for _, p := range result.Products {
		if !p.IsAvailable {
			fresh.Products = append(fresh.Products, p)
			continue
		}
		key := p.URL
		if key == "" {
			key = p.Title
		}
		if alerts.ShouldAlert(ctx, key) {
			fresh.Products = append(fresh.Products, p)
			claimed = append(claimed, key)
		}
	}
	return fresh, claimed
}
