// Package dom holds the dashboard host page as a mutable HTML document.
//
// The page is parsed once with goquery and then mutated in place: the
// status fragment replaces the contents of a designated element, and the
// theme is a class on the root <html> element. Serialising the page yields
// what a browser would see after the same DOM mutations.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ErrElementNotFound is returned when no element carries the requested id.
var ErrElementNotFound = errors.New("element not found")

// Page is a parsed HTML document. It is safe for concurrent use.
type Page struct {
	mu  sync.RWMutex
	doc *goquery.Document
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return &Page{doc: doc}, nil
}

// ParseString parses an HTML document held in s.
func ParseString(s string) (*Page, error) {
	return Parse(strings.NewReader(s))
}

// byID finds the first element whose id attribute equals id. Matching on
// the attribute value avoids building a CSS selector from arbitrary input.
func (p *Page) byID(id string) *goquery.Selection {
	return p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

// Has reports whether an element with the given id exists.
func (p *Page) Has(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byID(id).Length() > 0
}

// SetContent replaces the inner HTML of the element with the given id.
func (p *Page) SetContent(id, fragment string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sel := p.byID(id)
	if sel.Length() == 0 {
		return fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	sel.SetHtml(fragment)
	return nil
}

// Content returns the inner HTML of the element with the given id.
func (p *Page) Content(id string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sel := p.byID(id)
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: #%s", ErrElementNotFound, id)
	}
	return sel.Html()
}

// ToggleRootClass flips class on the <html> element and reports whether
// the class is present afterwards.
func (p *Page) ToggleRootClass(class string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	root := p.doc.Find("html").First()
	root.ToggleClass(class)
	return root.HasClass(class)
}

// SetRootClass adds or removes class on the <html> element.
func (p *Page) SetRootClass(class string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	root := p.doc.Find("html").First()
	if on {
		root.AddClass(class)
	} else {
		root.RemoveClass(class)
	}
}

// RootHasClass reports whether the <html> element carries class.
func (p *Page) RootHasClass(class string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Find("html").First().HasClass(class)
}

// SetTitle replaces the text of the document <title>, if there is one.
func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find("title").SetText(title)
}

// HTML serialises the whole document, doctype included.
func (p *Page) HTML() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Html()
}
