// Package availability decides whether a product detail page is
// buyable right now.
package availability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stocksentry/stocksentry/internal/dom"
	"github.com/stocksentry/stocksentry/internal/extractor"
	"github.com/stocksentry/stocksentry/internal/model"
	"github.com/stocksentry/stocksentry/internal/validator"
)

// BuyIndicators is the primary availability signal, searched
// case-insensitively in the page text. The list is deliberately short;
// broader lists matched unrelated purchase copy and reported sold-out
// items as buyable.
var BuyIndicators = []string{
	"buy now",
	"add to cart",
	"add to bag",
	"order now",
}

// QuantitySelectors locate quantity form controls for the secondary
// disabled-control signal.
var QuantitySelectors = []string{
	`input[type="number"]`,
	`[class*="quantity"]`,
	`[class*="qty"]`,
	`input[name*="quantity"]`,
	`input[name*="qty"]`,
	`select[class*="quantity"]`,
}

// PageOpener navigates to a URL and validates the landing page. The
// scraper wires its retry-backed prober in here; tests use static
// pages.
type PageOpener interface {
	Open(ctx context.Context, url string) (dom.Page, validator.Assessment, error)
}

// Result is the outcome of one availability check.
type Result struct {
	Status           model.AvailabilityStatus
	Reason           string
	Price            string
	PriceNumeric     *float64
	QuantityDisabled bool
}

type Checker struct {
	opener PageOpener
	logger *slog.Logger
}

func NewChecker(opener PageOpener) *Checker {
	return &Checker{
		opener: opener,
		logger: slog.Default().With("component", "availability"),
	}
}

// Check opens the product detail page and runs both availability
// signals over it.
func (c *Checker) Check(ctx context.Context, rawURL string) (Result, error) {
	target := NormalizeTarget(rawURL)

	page, assessment, err := c.opener.Open(ctx, target)
	if err != nil {
		return Result{Status: model.StatusError, Reason: err.Error()},
			&model.AvailabilityError{URL: target, Err: err}
	}

	if !assessment.Healthy {
		return Result{Status: model.StatusNotAvailable, Reason: assessment.Reason}, nil
	}

	result := AssessPage(page)

	c.logger.Info("availability checked",
		"url", target, "status", result.Status, "reason", result.Reason,
		"quantity_disabled", result.QuantityDisabled)
	return result, nil
}

// Enrich runs Check for one product and writes the outcome back into
// it. A failed check marks the product as errored and returns the
// error so the caller can count it, without aborting the batch.
func (c *Checker) Enrich(ctx context.Context, product *model.Product) error {
	result, err := c.Check(ctx, product.URL)

	product.SetAvailability(result.Status, result.Reason)
	if product.Price == "" && result.Price != "" {
		product.Price = result.Price
		product.PriceNumeric = result.PriceNumeric
	}

	return err
}

// AssessPage runs the two signals over an already-validated page. The
// quantity-control signal is recorded but never overrides the buy
// indicator verdict.
func AssessPage(page dom.Page) Result {
	body := page.Query("body")

	var text string
	if body != nil {
		text = body.Text()
	}

	status, reason := Assess(text)

	result := Result{
		Status:           status,
		Reason:           reason,
		QuantityDisabled: quantityControlsDisabled(page),
	}

	if body != nil {
		result.Price, result.PriceNumeric = extractor.New().PriceFrom(body)
	}

	return result
}

// Assess is the pure primary signal: available iff any buy indicator
// appears in the page text.
func Assess(pageText string) (model.AvailabilityStatus, string) {
	lower := strings.ToLower(pageText)
	for _, indicator := range BuyIndicators {
		if strings.Contains(lower, indicator) {
			return model.StatusAvailable, fmt.Sprintf("found indicator %q", indicator)
		}
	}
	return model.StatusNotAvailable, "no buy indicators on page"
}

func quantityControlsDisabled(page dom.Page) bool {
	for _, selector := range QuantitySelectors {
		// Bare boolean attributes read back as empty strings, so
		// presence is checked through the selector itself.
		if page.Query(selector+"[disabled]") != nil || page.Query(selector+"[readonly]") != nil {
			return true
		}
		for _, el := range page.QueryAll(selector) {
			if strings.Contains(strings.ToLower(el.Attr("class")), "disabled") {
				return true
			}
		}
	}
	return false
}

// NormalizeTarget makes a product URL absolute enough to navigate to.
func NormalizeTarget(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "//") {
		return "https:" + trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return "https://" + strings.TrimPrefix(trimmed, "/")
	}
	return trimmed
}
