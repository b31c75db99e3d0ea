// Package fetch is the non-browser acquisition path: some storefronts
// expose the listing as a JSON endpoint, which is cheaper and far less
// likely to be blocked than driving a full browser.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stocksentry/stocksentry/internal/config"
	"github.com/stocksentry/stocksentry/internal/model"
)

// jsonStartPattern is where the real payload begins when an anti-bot
// layer wraps the JSON response in HTML.
const jsonStartPattern = `{"mods"`

type Client struct {
	http       *http.Client
	retries    int
	backoff    time.Duration
	userAgents []string
	logger     *slog.Logger
}

func NewClient(cfg config.FetchConfig, userAgents []string) *Client {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		retries:    retries,
		backoff:    cfg.Backoff,
		userAgents: userAgents,
		logger:     slog.Default().With("component", "fetch"),
	}
}

// FetchJSON retrieves and parses the endpoint, retrying on non-200
// status and on parse failures with exponential backoff. The raw body
// of the last response is always returned so callers can dump it for
// offline debugging. As a last resort it looks for a known JSON start
// marker inside an HTML-wrapped response and parses from that offset.
func (c *Client) FetchJSON(ctx context.Context, url string) (map[string]any, string, error) {
	var lastErr error
	var lastBody string

	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			wait := c.backoff * time.Duration(1<<(attempt-2))
			c.logger.Info("retrying fetch", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, lastBody, ctx.Err()
			case <-time.After(wait):
			}
		}

		body, err := c.get(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		lastBody = body

		var payload map[string]any
		if err := json.Unmarshal([]byte(body), &payload); err == nil {
			return payload, body, nil
		}

		if start := strings.Index(body, jsonStartPattern); start != -1 {
			if err := json.Unmarshal([]byte(body[start:]), &payload); err == nil {
				c.logger.Info("recovered JSON payload from wrapped response", "offset", start)
				return payload, body, nil
			}
		}

		lastErr = fmt.Errorf("response is not valid JSON")
	}

	return nil, lastBody, fmt.Errorf("all %d fetch attempts failed for %s: %w", c.retries, url, lastErr)
}

func (c *Client) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	ua := c.userAgent()
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Edg/") {
		req.Header.Set("Sec-Ch-Ua", `"Chromium";v="131", "Google Chrome";v="131", "Not_A Brand";v="24"`)
		req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	}
	if origin := originOf(url); origin != "" {
		req.Header.Set("Referer", origin+"/")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return string(body), fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return string(body), nil
}

func (c *Client) userAgent() string {
	if len(c.userAgents) == 0 {
		return "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	return c.userAgents[rand.Intn(len(c.userAgents))]
}

// ProductsFromPayload maps a mods.listItems payload into product
// records. Items without a name are dropped; every other field
// degrades to empty.
func ProductsFromPayload(payload map[string]any) []*model.Product {
	mods, ok := payload["mods"].(map[string]any)
	if !ok {
		mods, ok = payload["modsData"].(map[string]any)
		if !ok {
			return nil
		}
	}

	items, ok := mods["listItems"].([]any)
	if !ok {
		return nil
	}

	var products []*model.Product
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		name := stringField(item, "name", "title")
		if name == "" {
			continue
		}

		product := model.NewProduct(name)
		product.Price = stringField(item, "priceShow", "originalPriceShow")
		if price, ok := floatField(item, "price"); ok {
			product.PriceNumeric = &price
		}
		product.ImageURL = stringField(item, "image")
		if itemURL := stringField(item, "itemUrl"); itemURL != "" {
			if strings.HasPrefix(itemURL, "//") {
				itemURL = "https:" + itemURL
			}
			product.URL = itemURL
		}

		if inStock, ok := item["inStock"].(bool); ok && inStock {
			product.SetAvailability(model.StatusAvailable, "payload reports in stock")
		} else {
			product.SetAvailability(model.StatusNotAvailable, "payload reports out of stock")
		}

		products = append(products, product)
	}

	return products
}

// FilterByName keeps products whose title contains one of the
// keywords, case-insensitively. An empty keyword list keeps all.
func FilterByName(products []*model.Product, keywords []string) []*model.Product {
	if len(keywords) == 0 {
		return products
	}

	var kept []*model.Product
	for _, p := range products {
		lower := strings.ToLower(p.Title)
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}

func stringField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := item[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func floatField(item map[string]any, key string) (float64, bool) {
	switch v := item[key].(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
