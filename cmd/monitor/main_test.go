package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stocksentry/stocksentry/internal/artifacts"
	"github.com/stocksentry/stocksentry/internal/dedup"
	"github.com/stocksentry/stocksentry/internal/model"
)

type stubNotifier struct {
	enabled bool
	ok      bool
	calls   int
}

func (s *stubNotifier) Enabled() bool { return s.enabled }

func (s *stubNotifier) Notify(ctx context.Context, result *model.RunResult) bool {
	s.calls++
	return s.ok
}

func testApp(t *testing.T, notifier restockNotifier) *app {
	t.Helper()
	return &app{
		writer:   artifacts.NewWriter(t.TempDir()),
		alerts:   dedup.New(nil, time.Minute),
		notifier: notifier,
		logger:   slog.Default(),
	}
}

func availableResult(url string) *model.RunResult {
	p := model.NewProduct("Widget TCG Box")
	p.URL = url
	p.SetAvailability(model.StatusAvailable, `found indicator "buy now"`)
	return &model.RunResult{RunID: "run-1", Products: []*model.Product{p}, TotalChecked: 1}
}

func TestFreshAlertsClaimsOnlyAvailable(t *testing.T) {
	ctx := context.Background()
	alerts := dedup.New(nil, time.Minute)

	sold := model.NewProduct("Sold Out Box")
	sold.URL = "https://shop.example.com/p/2"
	sold.SetAvailability(model.StatusNotAvailable, "no buy indicators on page")

	result := availableResult("https://shop.example.com/p/1")
	result.Products = append(result.Products, sold)

	fresh, claimed := freshAlerts(ctx, alerts, result)
	assert.Len(t, fresh.Available(), 1)
	assert.Equal(t, []string{"https://shop.example.com/p/1"}, claimed)

	fresh, claimed = freshAlerts(ctx, alerts, result)
	assert.Empty(t, fresh.Available())
	assert.Empty(t, claimed)
}

func TestFinishRunReleasesKeysWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	notifier := &stubNotifier{enabled: true, ok: false}
	a := testApp(t, notifier)

	a.finishRun(ctx, availableResult("https://shop.example.com/p/1"))

	assert.Equal(t, 1, notifier.calls)
	assert.True(t, a.alerts.ShouldAlert(ctx, "https://shop.example.com/p/1"),
		"failed delivery must not consume the dedup window")
}

func TestFinishRunConsumesKeysOnDelivery(t *testing.T) {
	ctx := context.Background()
	notifier := &stubNotifier{enabled: true, ok: true}
	a := testApp(t, notifier)

	a.finishRun(ctx, availableResult("https://shop.example.com/p/1"))

	assert.Equal(t, 1, notifier.calls)
	assert.False(t, a.alerts.ShouldAlert(ctx, "https://shop.example.com/p/1"))
}

func TestFinishRunSkipsDisabledNotifier(t *testing.T) {
	ctx := context.Background()
	notifier := &stubNotifier{enabled: false}
	a := testApp(t, notifier)

	a.finishRun(ctx, availableResult("https://shop.example.com/p/1"))

	assert.Zero(t, notifier.calls)
	assert.True(t, a.alerts.ShouldAlert(ctx, "https://shop.example.com/p/1"),
		"disabled notifier must not consume dedup keys")
}
