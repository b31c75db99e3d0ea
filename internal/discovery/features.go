// Package discovery finds product containers on a listing page through
// an ordered cascade of heuristics, from exact selectors down to
// structural scoring, so one site redesign does not blind the monitor.
package discovery

import (
	"regexp"
	"strings"

	"github.com/stocksentry/stocksentry/internal/dom"
)

const (
	// MinScore is the lowest feature score an element can have and
	// still count as a product container.
	MinScore = 5

	// MaxCandidates bounds how many containers one page may yield, to
	// keep extraction cost bounded on busy listing pages.
	MaxCandidates = 30

	// minSimilarContainers gates the generic tier: fewer structurally
	// similar elements than this and the tier refuses to guess.
	minSimilarContainers = 5
)

// ProductURLPattern recognizes hrefs that point at product detail
// pages.
var ProductURLPattern = regexp.MustCompile(`(?i)(/product|/item|/p/|/pd/|[?&]sku=|[?&]item_id=|[?&]product_id=)`)

var priceTokenPattern = regexp.MustCompile(`(?i)([$€£¥]\s*\d|\bs\$\s*\d|\b\d+[.,]\d{2}\b|\b(usd|sgd|eur|gbp)\b)`)

var productNouns = []string{
	"box", "pack", "card", "booster", "bundle", "deck",
	"set", "figure", "collection", "edition", "tin",
}

var actionVerbs = []string{
	"buy", "add to cart", "add to bag", "order", "checkout",
}

var productClassTokens = []string{
	"product", "item", "card", "goods", "listing", "sku", "merch",
}

// Features is everything the scorer knows about one element. It is a
// plain value so scoring can be tested against synthetic vectors
// without any DOM.
type Features struct {
	ImageCount     int
	LinkCount      int
	HasProductLink bool
	Text           string
	ClassID        string
	Width          float64
	Height         float64
}

// Score rates how much the element looks like one product container.
// Structural signals (images, links) weigh less than commerce signals
// (price tokens, product-ish class names).
func (f Features) Score() int {
	score := 0

	if f.ImageCount > 0 {
		score += 2
		if f.ImageCount > 1 {
			score++
		}
	}

	if f.LinkCount > 0 {
		score++
		if f.HasProductLink {
			score += 2
		}
	}

	text := strings.ToLower(f.Text)
	if priceTokenPattern.MatchString(text) {
		score += 3
	}
	if containsAny(text, productNouns) {
		score += 2
	}
	if containsAny(text, actionVerbs) {
		score++
	}

	if containsAny(strings.ToLower(f.ClassID), productClassTokens) {
		score += 3
	}

	// Layout only contributes when the page actually rendered.
	if f.Width > 0 && f.Height > 0 {
		if f.Width >= 100 && f.Height >= 100 {
			score++
		} else if f.Width < 40 || f.Height < 40 {
			score -= 2
		}
	}

	return score
}

// FeaturesOf reads the scoring inputs off a DOM element.
func FeaturesOf(el dom.Element) Features {
	f := Features{
		ImageCount: len(el.QueryAll("img")),
		Text:       clipText(el.Text(), 400),
		ClassID:    el.Attr("class") + " " + el.Attr("id"),
	}

	links := el.QueryAll("a[href]")
	f.LinkCount = len(links)
	for _, link := range links {
		if ProductURLPattern.MatchString(link.Attr("href")) {
			f.HasProductLink = true
			break
		}
	}

	f.Width, f.Height = el.Box()
	return f
}

func looksLikeProduct(el dom.Element) bool {
	return FeaturesOf(el).Score() >= MinScore
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// clipText bounds the text fed to the scoring regexes without cutting
// a multi-byte rune in half.
func clipText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
