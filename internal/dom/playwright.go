package dom

import (
	"strings"

	"github.com/playwright-community/playwright-go"
)

// pwElement adapts a Playwright element handle. All lookup failures
// degrade to empty results.
type pwElement struct {
	handle playwright.ElementHandle
}

// pwPage adapts a live Playwright page.
type pwPage struct {
	page playwright.Page
}

// FromPlaywright wraps a live page.
func FromPlaywright(page playwright.Page) Page {
	return &pwPage{page: page}
}

func (e *pwElement) Text() string {
	text, err := e.handle.TextContent()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (e *pwElement) Attr(name string) string {
	value, err := e.handle.GetAttribute(name)
	if err != nil {
		return ""
	}
	return value
}

func (e *pwElement) Tag() string {
	result, err := e.handle.Evaluate(`el => el.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	tag, _ := result.(string)
	return tag
}

func (e *pwElement) Query(selector string) Element {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil || handle == nil {
		return nil
	}
	return &pwElement{handle: handle}
}

func (e *pwElement) QueryAll(selector string) []Element {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}
	return wrapHandles(handles)
}

func (e *pwElement) Parent() Element {
	handle, err := e.handle.QuerySelector("xpath=..")
	if err != nil || handle == nil {
		return nil
	}
	return &pwElement{handle: handle}
}

func (e *pwElement) Box() (float64, float64) {
	box, err := e.handle.BoundingBox()
	if err != nil || box == nil {
		return 0, 0
	}
	return box.Width, box.Height
}

func (p *pwPage) Query(selector string) Element {
	handle, err := p.page.QuerySelector(selector)
	if err != nil || handle == nil {
		return nil
	}
	return &pwElement{handle: handle}
}

func (p *pwPage) QueryAll(selector string) []Element {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}
	return wrapHandles(handles)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) ContentHeight() float64 {
	result, err := p.page.Evaluate(`document.body.scrollHeight`)
	if err != nil {
		return 0
	}
	switch v := result.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (p *pwPage) ScrollToMiddle() {
	p.page.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`)
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &pwElement{handle: h})
	}
	return elements
}
