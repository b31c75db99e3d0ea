package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksentry/stocksentry/internal/dom"
)

func mustPage(t *testing.T, html string) dom.Page {
	t.Helper()
	page, err := dom.FromHTML(html, "https://shop.example.com/collection")
	require.NoError(t, err)
	return page
}

func TestDiscoverShortCircuits(t *testing.T) {
	calls := map[string]int{}
	fakeTier := func(name string, result []Candidate) tier {
		return tier{
			name: name,
			run: func(ctx context.Context, page dom.Page) []Candidate {
				calls[name]++
				return result
			},
		}
	}

	e := NewEngine()
	e.tiers = []tier{
		fakeTier("first", nil),
		fakeTier("second", []Candidate{{}}),
		fakeTier("third", nil),
	}

	got := e.Discover(context.Background(), mustPage(t, "<html><body></body></html>"))

	assert.Len(t, got, 1)
	assert.Equal(t, 1, calls["first"])
	assert.Equal(t, 1, calls["second"])
	assert.Zero(t, calls["third"])
}

func TestExactTier(t *testing.T) {
	page := mustPage(t, `<html><body>
<div class="product-item"><h3>Alpha Booster Box</h3><span class="price">$49.99</span></div>
<div class="product-item"><h3>Beta Booster Box</h3><span class="price">$54.99</span></div>
<div class="sidebar">unrelated</div>
</body></html>`)

	e := NewEngine()
	candidates := e.exactTier(context.Background(), page)

	require.Len(t, candidates, 2)
	assert.Contains(t, candidates[0].Element.Text(), "Alpha Booster Box")
}

func TestPriceAnchorTier(t *testing.T) {
	page := mustPage(t, `<html><body>
<div class="product-card">
	<img src="/img/a.jpg">
	<a href="/p/101">Alpha Booster Box</a>
	<span class="price">$49.99</span>
</div>
<div class="product-card">
	<img src="/img/b.jpg">
	<a href="/p/102">Beta Booster Box</a>
	<span class="price">$54.99</span>
</div>
</body></html>`)

	e := NewEngine()
	candidates := e.priceAnchorTier(context.Background(), page)

	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Score, MinScore)
		assert.Equal(t, "product-card", c.Element.Attr("class"))
	}
}

func TestPriceAnchorTierDeduplicatesAncestors(t *testing.T) {
	// Two price-like nodes inside one container must not yield two
	// candidates.
	page := mustPage(t, `<html><body>
<div class="product-card">
	<img src="/img/a.jpg">
	<a href="/p/101">Alpha Booster Box</a>
	<span class="price">$49.99</span>
	<span class="price-original">$59.99</span>
</div>
</body></html>`)

	e := NewEngine()
	candidates := e.priceAnchorTier(context.Background(), page)
	assert.Len(t, candidates, 1)
}

func TestLinkPatternTier(t *testing.T) {
	page := mustPage(t, `<html><body>
<nav><a href="/about">About</a><a href="/contact">Contact</a></nav>
<div class="tile">
	<img src="/img/a.jpg">
	<a href="/product/alpha-booster">Alpha Booster Box $49.99</a>
</div>
</body></html>`)

	e := NewEngine()
	candidates := e.linkPatternTier(context.Background(), page)

	require.NotEmpty(t, candidates)
	for _, c := range candidates {
		text := c.Element.Text()
		assert.NotContains(t, text, "About")
	}
}

func TestGenericTierNeedsEnoughContainers(t *testing.T) {
	// A near-empty page must not produce guesses.
	page := mustPage(t, `<html><body>
<div><div class="product">Booster Box $9.99</div></div>
</body></html>`)

	e := NewEngine()
	assert.Empty(t, e.genericTier(context.Background(), page))
}

func TestGenericTierScoresAndCaps(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><section>")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `<div><div class="product-tile"><img src="/i/%d.jpg"><a href="/p/%d">Booster Box %d</a><span>$%d.99</span></div></div>`, i, i, i, i+10)
	}
	b.WriteString("</section></body></html>")

	e := NewEngine()
	candidates := e.genericTier(context.Background(), mustPage(t, b.String()))

	require.NotEmpty(t, candidates)
	assert.LessOrEqual(t, len(candidates), MaxCandidates)
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Score, candidates[i].Score)
	}
	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Score, MinScore)
	}
}

func TestDiscoverUsesExactTierOnFixture(t *testing.T) {
	page := mustPage(t, `<html><body>
<div class="product-item"><h3>Widget</h3><span class="price">$9.99</span><a href="/p/1">Buy Now</a></div>
</body></html>`)

	e := NewEngine()
	candidates := e.Discover(context.Background(), page)

	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Element.Text(), "Widget")
}
