package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/stocksentry/stocksentry/internal/api"
	"github.com/stocksentry/stocksentry/internal/browser"
	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/diagnostics"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.Locale = cfg.Browser.Locale
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.ProxyServer = cfg.Browser.ProxyServer
	opts.ViewportWidth = cfg.Browser.ViewportWidth
	opts.ViewportHeight = cfg.Browser.ViewportHeight
	if len(cfg.Browser.UserAgents) > 0 {
		opts.UserAgent = cfg.Browser.UserAgents[0]
	}

	sessions := browser.NewSessionPool(opts)
	if _, err := sessions.Get(); err != nil {
		log.Error("failed to start browser engine; is the playwright driver installed?", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()

	diag := diagnostics.NewRecorder(cfg.Diagnostics.Dir, cfg.Diagnostics.Enabled)
	v := validator.New(protection.NewCaptchaHandler(nil), diag)
	service := scraper.New(cfg, sessions, v, diag)

	var st *store.Store
	if cfg.Database.Enabled {
		st, err = store.New(ctx, cfg.Database)
		if err != nil {
			log.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer st.Close()
	}

	handlers := api.NewHandlers(service.CheckURL, service.Run, st, log)
	router := api.NewRouter(cfg.Server, handlers)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
