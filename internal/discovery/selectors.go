package discovery

// ProductSelectors are tried in order by the exact tier; the first
// selector with at least one match wins.
var ProductSelectors = []string{
	`[data-qa-locator="product-item"]`,
	`.product-item`,
	`.item-box`,
	`.product`,
	`[data-testid="product-item"]`,
	`.item-card`,
	`.product-card`,
}

// PriceSelectors anchor the ancestor-walk tier on anything that smells
// like a displayed price.
var PriceSelectors = []string{
	`[class*="price"]`,
	`[class*="Price"]`,
	`[data-testid*="price"]`,
}

// containerPatterns are structural shapes that commonly wrap one
// product each on listing pages.
var containerPatterns = []string{
	`article`,
	`li`,
	`.card`,
	`.tile`,
	`div[class*="grid"] > div`,
	`ul > li > a[href]`,
}

// genericSelectors feed the scored generic tier with a broad element
// sample.
var genericSelectors = []string{
	`article`,
	`li`,
	`section > div`,
	`div > div`,
}
