// Package validator decides whether a loaded page is usable for
// scraping. The content checks are pure functions over page source so
// they can be exercised without a browser.
package validator

import (
	"fmt"
	"strings"

	"github.com/stocksentry/stocksentry/internal/protection"
)

// PlaceholderURL is what Chromium reports when navigation never left
// the blank page.
const PlaceholderURL = "data:,"

// MinContentLength is the shortest page source still considered a real
// page rather than an empty shell or a truncated response.
const MinContentLength = 50

// CriticalErrorIndicators mark a page as unusable on sight.
var CriticalErrorIndicators = []string{
	"page not found", "404 error", "server error", "500 error",
	"network error", "connection failed",
	"access denied", "forbidden", "not available in your region",
	"blocked", "captcha required", "bot detection", "unusual traffic detected",
	"temporarily unavailable", "site maintenance", "under maintenance",
	"internal server error", "bad gateway", "service unavailable",
}

// ProductPageIndicators are terms expected somewhere on a commerce
// page. A page matching none of them carries no product content.
var ProductPageIndicators = []string{
	"price", "product", "buy", "cart", "add to cart", "purchase", "order",
	"add-to-cart", "buy now", "buy-now", "quantity", "qty", "delivery",
	"shipping", "checkout", "item", "sku", "stock", "available",
	"pdp-", "item-detail", "product-detail", "current-price",
	"original-price", "sale-price", "final-price",
	"s$", "$", "€", "£", "¥", "usd", "sgd", "price_", "currency",
	"rating", "review", "star", "seller", "brand", "description",
	"specification", "warranty", "return", "exchange",
}

// ambiguousErrorPhrases only fail a page when they appear in the title
// or in markup that is clearly an error message, not buried in scripts
// or unrelated copy.
var ambiguousErrorPhrases = []string{
	"error occurred", "something went wrong", "try again later",
}

// Assessment is the verdict on one page's content.
type Assessment struct {
	Healthy   bool
	Reason    string
	BlockedBy protection.Vendor
}

// AssessContent evaluates page source, title and the URL the browser
// actually landed on. Checks run cheapest first; the first failure
// determines the reason.
func AssessContent(pageSource, pageTitle, currentURL string) Assessment {
	if currentURL == "" || currentURL == PlaceholderURL {
		return Assessment{Reason: fmt.Sprintf("invalid current url %q", currentURL)}
	}

	if len(strings.TrimSpace(pageSource)) < MinContentLength {
		return Assessment{Reason: "page content too short or empty"}
	}

	if vendor := protection.Detect(pageSource, pageTitle); vendor != protection.VendorNone {
		return Assessment{
			Reason:    fmt.Sprintf("blocked by %s protection", vendor),
			BlockedBy: vendor,
		}
	}

	pageLower := strings.ToLower(pageSource)
	titleLower := strings.ToLower(pageTitle)

	if indicator := firstMatch(pageLower, CriticalErrorIndicators); indicator != "" {
		return Assessment{Reason: fmt.Sprintf("error page detected: %q", indicator)}
	}

	if phrase := ambiguousError(pageLower, titleLower); phrase != "" {
		return Assessment{Reason: fmt.Sprintf("error message in error context: %q", phrase)}
	}

	if firstMatch(pageLower, ProductPageIndicators) == "" {
		return Assessment{Reason: "no product-related content found"}
	}

	return Assessment{Healthy: true}
}

func firstMatch(haystack string, needles []string) string {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return n
		}
	}
	return ""
}

func ambiguousError(pageLower, titleLower string) string {
	for _, phrase := range ambiguousErrorPhrases {
		if strings.Contains(titleLower, phrase) {
			return phrase
		}

		contexts := []string{
			"<h1>" + phrase + "</h1>",
			"<h2>" + phrase + "</h2>",
			"<h3>" + phrase + "</h3>",
			`<div class="error">` + phrase,
			`<div class="message">` + phrase,
			`<p class="error">` + phrase,
			`<span class="error">` + phrase,
		}
		for _, c := range contexts {
			if strings.Contains(pageLower, c) {
				return phrase
			}
		}
	}
	return ""
}
