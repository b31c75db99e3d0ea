// Package extractor turns one discovered container into a structured
// product record using per-field selector waterfalls.
package extractor

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/stocksentry/stocksentry/internal/discovery"
	"github.com/stocksentry/stocksentry/internal/dom"
	"github.com/stocksentry/stocksentry/internal/model"
)

// TitleSelectors are tried in order; the first with non-empty text
// wins.
var TitleSelectors = []string{
	"h2", "h3", ".title",
	`[data-qa-locator="product-name"]`,
	`a[title]`,
	`[class*="title"]`,
}

// PriceSelectors feed the price waterfall.
var PriceSelectors = []string{
	`[class*="price"]`,
	`[data-testid*="price"]`,
	".price",
	".current-price",
	".sale-price",
	".final-price",
	".product-price",
}

// ImageSelectors locate the product image.
var ImageSelectors = []string{
	"img[src]",
	"img[data-src]",
	"img",
}

const maxOwnTextTitle = 120

var priceTextPattern = regexp.MustCompile(`(?i)([$€£¥]\s*\d|\bs\$\s*\d|\b\d+[.,]\d{2}\b)`)

var numericPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

type Extractor struct {
	logger *slog.Logger
}

func New() *Extractor {
	return &Extractor{
		logger: slog.Default().With("component", "extractor"),
	}
}

// Extract builds a Product from one candidate container. It returns
// model.ErrExtractionSkip when no usable title can be found; every
// other field degrades to empty rather than failing the candidate.
func (e *Extractor) Extract(candidate dom.Element, pageURL string) (*model.Product, error) {
	title := e.extractTitle(candidate)
	if title == "" {
		return nil, model.ErrExtractionSkip
	}

	product := model.NewProduct(title)
	product.URL = e.extractURL(candidate, pageURL)
	product.ImageURL = e.extractImage(candidate, pageURL)
	product.Price, product.PriceNumeric = e.extractPrice(candidate)

	e.logger.Debug("extracted product",
		"title", product.Title, "price", product.Price, "url", product.URL)
	return product, nil
}

func (e *Extractor) extractTitle(candidate dom.Element) string {
	for _, selector := range TitleSelectors {
		el := candidate.Query(selector)
		if el == nil {
			continue
		}
		if text := el.Text(); text != "" {
			return text
		}
		if title := el.Attr("title"); title != "" {
			return title
		}
	}

	// Fall back to the container's own text, then to its first link.
	if text := candidate.Text(); text != "" && len(text) <= maxOwnTextTitle {
		return text
	}
	if link := candidate.Query("a[href]"); link != nil {
		if text := link.Text(); text != "" {
			return text
		}
	}

	return ""
}

// PriceFrom runs the price waterfall against any container, such as a
// whole detail page body.
func (e *Extractor) PriceFrom(container dom.Element) (string, *float64) {
	return e.extractPrice(container)
}

func (e *Extractor) extractPrice(candidate dom.Element) (string, *float64) {
	for _, selector := range PriceSelectors {
		el := candidate.Query(selector)
		if el == nil {
			continue
		}
		text := el.Text()
		if !priceTextPattern.MatchString(text) {
			continue
		}
		return text, parsePriceNumeric(text)
	}
	return "", nil
}

func (e *Extractor) extractImage(candidate dom.Element, pageURL string) string {
	for _, selector := range ImageSelectors {
		el := candidate.Query(selector)
		if el == nil {
			continue
		}
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if src := el.Attr(attr); src != "" && src != "data:," {
				return NormalizeURL(src, pageURL)
			}
		}
	}
	return ""
}

func (e *Extractor) extractURL(candidate dom.Element, pageURL string) string {
	links := candidate.QueryAll("a[href]")
	if len(links) == 0 {
		return ""
	}

	// Prefer a link that actually looks like a product detail page.
	for _, link := range links {
		if href := link.Attr("href"); discovery.ProductURLPattern.MatchString(href) {
			return NormalizeURL(href, pageURL)
		}
	}
	return NormalizeURL(links[0].Attr("href"), pageURL)
}

// NormalizeURL resolves protocol-relative and root-relative hrefs
// against the page the candidate was found on. Absolute URLs pass
// through unchanged.
func NormalizeURL(href, pageURL string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" {
		return href
	}

	if strings.HasPrefix(href, "//") {
		return base.Scheme + ":" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// parsePriceNumeric pulls the first number out of a price display
// string. Thousands separators are stripped; a missing number yields
// nil rather than zero.
func parsePriceNumeric(text string) *float64 {
	match := numericPattern.FindString(text)
	if match == "" {
		return nil
	}

	match = strings.ReplaceAll(match, ",", "")
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}
