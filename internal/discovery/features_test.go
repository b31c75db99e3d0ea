package discovery

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		features Features
		expected int
	}{
		{
			name: "rich product card",
			features: Features{
				ImageCount:     1,
				LinkCount:      1,
				HasProductLink: true,
				Text:           "Booster Box $49.99 Add to cart",
				ClassID:        "product-card",
			},
			// image 2, link 1+2, price 3, noun 2, verb 1, class 3
			expected: 14,
		},
		{
			name: "navigation chrome scores low",
			features: Features{
				LinkCount: 3,
				Text:      "Home About Contact Us",
				ClassID:   "nav-menu",
			},
			expected: 1,
		},
		{
			name: "multiple images add one more",
			features: Features{
				ImageCount: 3,
			},
			expected: 3,
		},
		{
			name: "price token alone",
			features: Features{
				Text: "from S$ 12 per pack",
			},
			// price 3, noun ("pack") 2
			expected: 5,
		},
		{
			name: "decimal price without currency symbol",
			features: Features{
				Text: "only 19.99 left",
			},
			expected: 3,
		},
		{
			name: "large element gets layout bonus",
			features: Features{
				ClassID: "item-tile",
				Width:   240,
				Height:  320,
			},
			expected: 4,
		},
		{
			name: "tiny element is penalized",
			features: Features{
				ClassID: "item-tile",
				Width:   20,
				Height:  20,
			},
			expected: 1,
		},
		{
			name: "unknown layout is neutral",
			features: Features{
				ClassID: "item-tile",
			},
			expected: 3,
		},
		{
			name:     "empty element",
			features: Features{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.features.Score())
		})
	}
}

func TestProductURLPattern(t *testing.T) {
	matching := []string{
		"/product/booster-box",
		"https://shop.example.com/item/123",
		"/p/1",
		"/pd/widget",
		"/catalog?sku=ABC123",
		"/detail?product_id=9",
	}
	for _, href := range matching {
		assert.True(t, ProductURLPattern.MatchString(href), href)
	}

	nonMatching := []string{
		"/about",
		"/category/cards",
		"https://shop.example.com/help",
		"#",
	}
	for _, href := range nonMatching {
		assert.False(t, ProductURLPattern.MatchString(href), href)
	}
}

func TestClipTextKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("ポ", 500)

	clipped := clipText(text, 400)

	assert.True(t, utf8.ValidString(clipped))
	assert.Equal(t, 400, utf8.RuneCountInString(clipped))
	assert.Equal(t, "short", clipText("short", 400))
}
