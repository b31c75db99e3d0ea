package dom

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// gqElement adapts a goquery selection. Used by tests and by the
// static-HTML probing paths that never see a live browser. Box always
// reports (0, 0) since static HTML carries no layout.
type gqElement struct {
	sel *goquery.Selection
}

type gqPage struct {
	doc *goquery.Document
	url string
}

// FromHTML parses static HTML into a Page.
func FromHTML(html, url string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &gqPage{doc: doc, url: url}, nil
}

func (e *gqElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e *gqElement) Attr(name string) string {
	value, _ := e.sel.Attr(name)
	return value
}

func (e *gqElement) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e *gqElement) Query(selector string) Element {
	found := e.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return &gqElement{sel: found}
}

func (e *gqElement) QueryAll(selector string) []Element {
	return wrapSelections(e.sel.Find(selector))
}

func (e *gqElement) Parent() Element {
	parent := e.sel.Parent()
	if parent.Length() == 0 {
		return nil
	}
	return &gqElement{sel: parent}
}

func (e *gqElement) Box() (float64, float64) {
	return 0, 0
}

func (p *gqPage) Query(selector string) Element {
	found := p.doc.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return &gqElement{sel: found}
}

func (p *gqPage) QueryAll(selector string) []Element {
	return wrapSelections(p.doc.Find(selector))
}

func (p *gqPage) URL() string {
	return p.url
}

func (p *gqPage) ContentHeight() float64 {
	return 0
}

func (p *gqPage) ScrollToMiddle() {}

func wrapSelections(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &gqElement{sel: s})
	})
	return elements
}
