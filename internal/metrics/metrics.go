// Package metrics exposes the Prometheus instrumentation for the
// monitor and the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stocksentry_runs_total",
		Help: "Completed scrape runs by outcome.",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stocksentry_run_duration_seconds",
		Help:    "Wall time of one scrape run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	PagesValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stocksentry_pages_validated_total",
		Help: "Page validations by verdict.",
	}, []string{"verdict"})

	BlockedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stocksentry_blocked_total",
		Help: "Terminal page blocks by protection vendor.",
	}, []string{"vendor"})

	ProductsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stocksentry_products_discovered_total",
		Help: "Product candidates that survived extraction.",
	})

	ProductsAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stocksentry_products_available",
		Help: "Available products seen in the most recent run.",
	})

	RecoveryStrategies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stocksentry_recovery_strategies_total",
		Help: "Recovery strategy invocations by name.",
	}, []string{"strategy"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stocksentry_notifications_total",
		Help: "Notification deliveries by outcome.",
	}, []string{"outcome"})
)
