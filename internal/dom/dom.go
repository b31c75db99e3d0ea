// Package dom is a thin read-only view over a rendered page. Discovery
// and extraction work against these interfaces so their heuristics run
// identically on a live Playwright page and on static HTML in tests.
//
// Lookups never fail loudly: a selector that matches nothing returns
// nil or an empty slice, and attribute reads return the empty string.
// Callers fall through to the next heuristic instead of handling
// per-lookup errors.
package dom

// Element is one node of the page.
type Element interface {
	// Text returns the node's visible text, whitespace-trimmed.
	Text() string
	// Attr returns the named attribute, or "" when absent.
	Attr(name string) string
	// Tag returns the lowercase tag name.
	Tag() string
	// Query returns the first descendant matching the selector, or nil.
	Query(selector string) Element
	// QueryAll returns all descendants matching the selector.
	QueryAll(selector string) []Element
	// Parent returns the parent element, or nil at the document root.
	Parent() Element
	// Box returns the rendered width and height in pixels, or (0, 0)
	// when layout information is unavailable.
	Box() (width, height float64)
}

// Page is the document-level view.
type Page interface {
	// Query returns the first element matching the selector, or nil.
	Query(selector string) Element
	// QueryAll returns all elements matching the selector.
	QueryAll(selector string) []Element
	// URL returns the address the page is currently on.
	URL() string
	// ContentHeight returns the scrollable document height in pixels.
	ContentHeight() float64
	// ScrollToMiddle scrolls to the vertical midpoint to trigger
	// lazy-loaded content.
	ScrollToMiddle()
}

// Fingerprint builds a stable identity string for deduplication when
// two heuristics land on the same container.
func Fingerprint(el Element) string {
	if el == nil {
		return ""
	}
	text := el.Text()
	if len(text) > 80 {
		if runes := []rune(text); len(runes) > 80 {
			text = string(runes[:80])
		}
	}
	return el.Tag() + "|" + el.Attr("class") + "|" + el.Attr("id") + "|" + text
}
