package discovery

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/stocksentry/stocksentry/internal/dom"
)

// Candidate is one suspected product container. Score is only set by
// the scored tiers; exact-selector matches carry zero.
type Candidate struct {
	Element dom.Element
	Score   int
}

type tier struct {
	name string
	run  func(ctx context.Context, page dom.Page) []Candidate
}

// Engine walks the discovery cascade. Each tier runs only when every
// tier before it came back empty.
type Engine struct {
	tiers       []tier
	lazyWait    time.Duration
	maxAncestor int
	logger      *slog.Logger
}

func NewEngine() *Engine {
	e := &Engine{
		lazyWait:    1500 * time.Millisecond,
		maxAncestor: 5,
		logger:      slog.Default().With("component", "discovery"),
	}
	e.tiers = []tier{
		{name: "exact_selector", run: e.exactTier},
		{name: "price_anchor", run: e.priceAnchorTier},
		{name: "link_pattern", run: e.linkPatternTier},
		{name: "generic_container", run: e.genericTier},
		{name: "dynamic_content", run: e.dynamicTier},
	}
	return e
}

// Discover returns the product candidates of the first tier that finds
// any, or an empty slice when the whole cascade comes up dry.
func (e *Engine) Discover(ctx context.Context, page dom.Page) []Candidate {
	for _, t := range e.tiers {
		if ctx.Err() != nil {
			return nil
		}

		candidates := t.run(ctx, page)
		if len(candidates) > 0 {
			e.logger.Info("products discovered",
				"tier", t.name, "count", len(candidates), "url", page.URL())
			return candidates
		}
		e.logger.Debug("tier found nothing", "tier", t.name)
	}

	e.logger.Warn("discovery cascade exhausted", "url", page.URL())
	return nil
}

func (e *Engine) exactTier(_ context.Context, page dom.Page) []Candidate {
	for _, selector := range ProductSelectors {
		elements := page.QueryAll(selector)
		if len(elements) == 0 {
			continue
		}

		candidates := make([]Candidate, 0, len(elements))
		for _, el := range elements {
			candidates = append(candidates, Candidate{Element: el})
		}
		return capCandidates(candidates)
	}
	return nil
}

// priceAnchorTier starts from anything priced and walks up to the
// nearest ancestor that looks like a whole product container.
func (e *Engine) priceAnchorTier(_ context.Context, page dom.Page) []Candidate {
	seen := map[string]bool{}
	var candidates []Candidate

	for _, selector := range PriceSelectors {
		for _, priceEl := range page.QueryAll(selector) {
			container := e.ascend(priceEl)
			if container == nil {
				continue
			}

			key := dom.Fingerprint(container)
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, Candidate{
				Element: container,
				Score:   FeaturesOf(container).Score(),
			})
		}
	}

	return capCandidates(candidates)
}

func (e *Engine) linkPatternTier(_ context.Context, page dom.Page) []Candidate {
	seen := map[string]bool{}
	var candidates []Candidate

	add := func(el dom.Element, score int) {
		key := dom.Fingerprint(el)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		candidates = append(candidates, Candidate{Element: el, Score: score})
	}

	for _, link := range page.QueryAll("a[href]") {
		if !ProductURLPattern.MatchString(link.Attr("href")) {
			continue
		}

		if container := e.ascend(link); container != nil {
			add(container, FeaturesOf(container).Score())
		} else {
			add(link, 0)
		}
	}

	// Structural container shapes only count when they repeat, a lone
	// match is more likely navigation chrome than a product grid.
	for _, pattern := range containerPatterns {
		elements := page.QueryAll(pattern)
		if len(elements) < 2 {
			continue
		}
		for _, el := range elements {
			if looksLikeProduct(el) {
				add(el, FeaturesOf(el).Score())
			}
		}
	}

	return capCandidates(candidates)
}

// genericTier scores a broad structural sample. It refuses to act on
// pages without enough similarly shaped elements, since scoring a
// handful of arbitrary divs produces junk.
func (e *Engine) genericTier(_ context.Context, page dom.Page) []Candidate {
	seen := map[string]bool{}
	var sample []dom.Element

	for _, selector := range genericSelectors {
		for _, el := range page.QueryAll(selector) {
			key := dom.Fingerprint(el)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			sample = append(sample, el)
		}
	}

	if len(sample) < minSimilarContainers {
		return nil
	}

	var candidates []Candidate
	for _, el := range sample {
		score := FeaturesOf(el).Score()
		if score < MinScore {
			continue
		}
		candidates = append(candidates, Candidate{Element: el, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return capCandidates(candidates)
}

// dynamicTier forces a lazy-load by scrolling to mid-page, then re-runs
// the link tier if the document actually grew.
func (e *Engine) dynamicTier(ctx context.Context, page dom.Page) []Candidate {
	before := page.ContentHeight()
	if before == 0 {
		return nil
	}

	page.ScrollToMiddle()
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(e.lazyWait):
	}

	if page.ContentHeight() <= before {
		return nil
	}

	e.logger.Debug("page grew after scroll, re-running link tier")
	return e.linkPatternTier(ctx, page)
}

func (e *Engine) ascend(el dom.Element) dom.Element {
	current := el.Parent()
	for depth := 0; depth < e.maxAncestor && current != nil; depth++ {
		if looksLikeProduct(current) {
			return current
		}
		current = current.Parent()
	}
	return nil
}

func capCandidates(candidates []Candidate) []Candidate {
	if len(candidates) > MaxCandidates {
		return candidates[:MaxCandidates]
	}
	return candidates
}
