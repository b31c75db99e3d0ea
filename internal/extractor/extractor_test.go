package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksentry/stocksentry/internal/dom"
	"github.com/stocksentry/stocksentry/internal/model"
)

const pageURL = "https://shop.example.com/collection/boxes"

func candidateFrom(t *testing.T, html, selector string) dom.Element {
	t.Helper()
	page, err := dom.FromHTML(html, pageURL)
	require.NoError(t, err)
	el := page.Query(selector)
	require.NotNil(t, el, "selector %q matched nothing", selector)
	return el
}

func TestExtractFixture(t *testing.T) {
	candidate := candidateFrom(t, `<html><body>
<div class="product-item"><h3>Widget</h3><span class="price">$9.99</span><a href="/p/1">Buy Now</a></div>
</body></html>`, ".product-item")

	product, err := New().Extract(candidate, pageURL)

	require.NoError(t, err)
	assert.Equal(t, "Widget", product.Title)
	assert.Contains(t, product.Price, "$9.99")
	require.NotNil(t, product.PriceNumeric)
	assert.InDelta(t, 9.99, *product.PriceNumeric, 0.001)
	assert.Equal(t, "https://shop.example.com/p/1", product.URL)
	assert.Equal(t, model.StatusUnknown, product.AvailabilityStatus)
}

func TestExtractNoTitleReturnsSkip(t *testing.T) {
	candidate := candidateFrom(t, `<html><body>
<div class="product-item"><img src="/img/a.jpg"></div>
</body></html>`, ".product-item")

	product, err := New().Extract(candidate, pageURL)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, model.ErrExtractionSkip)
}

func TestExtractTitleFallsBackToLinkText(t *testing.T) {
	// No heading, container text too long to serve as a title, so the
	// first link's text wins.
	long := `<div class="product-item"><p>` + repeat("lorem ipsum ", 30) + `</p><a href="/p/7">Alpha Booster Box</a></div>`
	candidate := candidateFrom(t, "<html><body>"+long+"</body></html>", ".product-item")

	product, err := New().Extract(candidate, pageURL)

	require.NoError(t, err)
	assert.Contains(t, product.Title, "Alpha Booster Box")
}

func TestExtractTitleFromTitleAttribute(t *testing.T) {
	candidate := candidateFrom(t, `<html><body>
<div class="product-item"><a title="Beta Booster Box" href="/p/8"><img src="/i/8.jpg"></a></div>
</body></html>`, ".product-item")

	product, err := New().Extract(candidate, pageURL)

	require.NoError(t, err)
	assert.Equal(t, "Beta Booster Box", product.Title)
}

func TestExtractIdempotent(t *testing.T) {
	candidate := candidateFrom(t, `<html><body>
<div class="product-item"><h3>Widget</h3><span class="price">$9.99</span><a href="/p/1">Buy</a><img src="//cdn.example.com/w.jpg"></div>
</body></html>`, ".product-item")

	ex := New()
	first, err := ex.Extract(candidate, pageURL)
	require.NoError(t, err)
	second, err := ex.Extract(candidate, pageURL)
	require.NoError(t, err)

	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.ImageURL, second.ImageURL)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.PriceNumeric, second.PriceNumeric)
}

func TestExtractSkipsNonPriceText(t *testing.T) {
	// A "price" class holding no actual price must not populate the
	// field.
	candidate := candidateFrom(t, `<html><body>
<div class="product-item"><h3>Widget</h3><span class="price">Call for price</span></div>
</body></html>`, ".product-item")

	product, err := New().Extract(candidate, pageURL)

	require.NoError(t, err)
	assert.Empty(t, product.Price)
	assert.Nil(t, product.PriceNumeric)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"protocol relative", "//shop.example.com/a/b", "https://shop.example.com/a/b"},
		{"root relative", "/a/b", "https://shop.example.com/a/b"},
		{"already absolute", "https://shop.example.com/a/b", "https://shop.example.com/a/b"},
		{"relative path", "a/b", "https://shop.example.com/collection/a/b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeURL(tt.href, pageURL))
		})
	}
}

func TestParsePriceNumeric(t *testing.T) {
	tests := []struct {
		text     string
		expected float64
	}{
		{"$9.99", 9.99},
		{"S$ 1,234.50", 1234.50},
		{"from 49.99 USD", 49.99},
	}
	for _, tt := range tests {
		got := parsePriceNumeric(tt.text)
		require.NotNil(t, got, tt.text)
		assert.InDelta(t, tt.expected, *got, 0.001, tt.text)
	}

	assert.Nil(t, parsePriceNumeric("sold out"))
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
