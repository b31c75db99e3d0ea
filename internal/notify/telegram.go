// Package notify delivers availability alerts over the Telegram Bot
// API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/metrics"
	"github.com/stocksentry/stocksentry/internal/model"
)

const defaultAPIBase = "https://api.telegram.org"

type Telegram struct {
	http    *http.Client
	apiBase string
	token   string
	chatIDs []string
	logger  *slog.Logger
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		http:    &http.Client{Timeout: 15 * time.Second},
		apiBase: defaultAPIBase,
		token:   cfg.BotToken,
		chatIDs: cfg.ChatIDs,
		logger:  slog.Default().With("component", "notify"),
	}
}

// Enabled reports whether the notifier has somewhere to send to.
func (t *Telegram) Enabled() bool {
	return t.token != "" && len(t.chatIDs) > 0
}

// Notify formats the available products and fans the message out to
// every configured chat. It returns true only when every delivery
// succeeded.
func (t *Telegram) Notify(ctx context.Context, result *model.RunResult) bool {
	if !t.Enabled() {
		t.logger.Debug("notifier disabled, skipping")
		return false
	}

	message := FormatMessage(result)
	ok := true

	for _, chatID := range t.chatIDs {
		if err := t.send(ctx, chatID, message); err != nil {
			t.logger.Error("notification delivery failed", "chat_id", chatID, "error", err)
			metrics.NotificationsTotal.WithLabelValues("error").Inc()
			ok = false
			continue
		}
		metrics.NotificationsTotal.WithLabelValues("ok").Inc()
	}

	return ok
}

func (t *Telegram) send(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// FormatMessage renders one run into a chat message. Available
// products are listed alphabetically; the footer carries the run
// counters.
func FormatMessage(result *model.RunResult) string {
	available := result.Available()

	var b strings.Builder
	if len(available) == 0 {
		b.WriteString("No products available right now.\n")
	} else {
		fmt.Fprintf(&b, "%d product(s) available:\n\n", len(available))

		sorted := make([]*model.Product, len(available))
		copy(sorted, available)
		sort.Slice(sorted, func(i, j int) bool {
			return strings.ToLower(sorted[i].Title) < strings.ToLower(sorted[j].Title)
		})

		for _, p := range sorted {
			fmt.Fprintf(&b, "• %s", p.Title)
			if p.Price != "" {
				fmt.Fprintf(&b, " - %s", p.Price)
			}
			b.WriteString("\n")
			if p.URL != "" {
				fmt.Fprintf(&b, "  %s\n", p.URL)
			}
		}
	}

	fmt.Fprintf(&b, "\nChecked %d, sold out %d.", result.TotalChecked, result.SoldOutCount)
	return b.String()
}
