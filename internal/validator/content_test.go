package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stocksentry/stocksentry/internal/protection"
)

const healthyProductPage = `<html><head><title>Shop</title></head><body>
<div class="product-grid">
	<div class="product-item"><h3>Trading Card Booster Box</h3>
	<span class="price">$49.99</span><button>Add to Cart</button></div>
</div></body></html>`

func TestAssessContentHealthy(t *testing.T) {
	a := AssessContent(healthyProductPage, "Shop", "https://shop.example.com/collection")
	assert.True(t, a.Healthy)
	assert.Empty(t, a.Reason)
	assert.Equal(t, protection.VendorNone, a.BlockedBy)
}

func TestAssessContentFailures(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		title     string
		url       string
		reason    string
		blockedBy protection.Vendor
	}{
		{
			name:   "placeholder url means navigation never happened",
			source: healthyProductPage,
			url:    "data:,",
			reason: "invalid current url",
		},
		{
			name:   "empty url",
			source: healthyProductPage,
			url:    "",
			reason: "invalid current url",
		},
		{
			name:   "content below minimum length",
			source: "<html></html>",
			url:    "https://shop.example.com",
			reason: "too short",
		},
		{
			name:   "whitespace padding does not count as content",
			source: "<p>hi</p>" + strings.Repeat(" ", 200),
			url:    "https://shop.example.com",
			reason: "too short",
		},
		{
			name:      "incapsula block page",
			source:    `<html><body>Request unsuccessful. Incapsula incident ID: 459000120. The price and product data you requested is unavailable while we verify your request.</body></html>`,
			url:       "https://shop.example.com",
			reason:    "blocked by incapsula",
			blockedBy: protection.VendorIncapsula,
		},
		{
			name:      "cloudflare challenge",
			source:    `<html><body><p>Checking your browser before accessing shop.example.com. This process is automatic.</p></body></html>`,
			url:       "https://shop.example.com",
			reason:    "blocked by cloudflare",
			blockedBy: protection.VendorCloudflare,
		},
		{
			name:   "critical error page",
			source: `<html><body><h1>Page Not Found</h1><p>The page you requested does not exist on this server, sorry about that.</p></body></html>`,
			url:    "https://shop.example.com/missing",
			reason: "error page detected",
		},
		{
			name:   "ambiguous error in title",
			source: healthyProductPage,
			title:  "Oops, Something Went Wrong",
			url:    "https://shop.example.com",
			reason: "error message in error context",
		},
		{
			name:   "ambiguous error in error markup",
			source: `<html><body><h1>Something went wrong</h1><p>price list unavailable</p></body></html>`,
			url:    "https://shop.example.com",
			reason: "error message in error context",
		},
		{
			name:   "no product content",
			source: `<html><body><h1>Welcome to our blog</h1><p>Here we write long essays about nothing in particular, with many words.</p></body></html>`,
			url:    "https://blog.example.com",
			reason: "no product-related content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AssessContent(tt.source, tt.title, tt.url)
			assert.False(t, a.Healthy)
			assert.Contains(t, a.Reason, tt.reason)
			assert.Equal(t, tt.blockedBy, a.BlockedBy)
		})
	}
}

func TestAmbiguousPhraseOutsideErrorContextPasses(t *testing.T) {
	// The phrase appears in a script blob, not in error markup, so the
	// page is still usable.
	source := `<html><body>
<script>window.msg = "something went wrong";</script>
<div class="product-item"><h3>Booster Box</h3><span class="price">$9.99</span></div>
</body></html>`
	a := AssessContent(source, "Shop", "https://shop.example.com")
	assert.True(t, a.Healthy)
}
