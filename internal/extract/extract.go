package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractionError signals page content that could not be parsed as markup.
// Missing fields are never an error; they come back as nil.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Options tunes the sanity filters shared by the field strategies.
type Options struct {
	DefaultCurrency string
	AssetDomain     string
	MaxImages       int
	MinTitleLen     int
}

func DefaultOptions() Options {
	return Options{
		DefaultCurrency: "USD",
		AssetDomain:     "alicdn.com",
		MaxImages:       10,
		MinTitleLen:     16,
	}
}

// Page wraps one fetched document for the field strategies. Scripts and
// visible text are collected once and shared.
type Page struct {
	doc     *goquery.Document
	scripts []string
	text    string
}

// NewPage parses raw HTML. A document that cannot be parsed at all yields an
// *ExtractionError; thereafter every strategy is best-effort.
func NewPage(url, html string) (*Page, error) {
	if strings.TrimSpace(html) == "" {
		return nil, &ExtractionError{URL: url, Err: fmt.Errorf("empty document")}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{URL: url, Err: err}
	}

	p := &Page{doc: doc}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if t := s.Text(); t != "" {
			p.scripts = append(p.scripts, t)
		}
	})
	p.text = doc.Text()
	return p, nil
}

func (p *Page) Doc() *goquery.Document { return p.doc }

// strategy is one named heuristic for recovering a field from page content.
type strategy struct {
	name string
	fn   func(p *Page) []string
}

// firstMatch runs strategies in priority order and returns the first candidate
// that passes the accept filter. Each strategy may yield several candidates;
// within a strategy they are checked in document order.
func firstMatch(p *Page, accept func(string) bool, strategies []strategy) (string, bool) {
	for _, st := range strategies {
		for _, candidate := range st.fn(p) {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			if accept == nil || accept(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// selectorTexts yields the text of every element matching any selector.
func selectorTexts(p *Page, selectors ...string) []string {
	var out []string
	for _, sel := range selectors {
		p.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, strings.TrimSpace(s.Text()))
		})
	}
	return out
}

// selectorAttrs yields an attribute value from every element matching any
// selector.
func selectorAttrs(p *Page, attr string, selectors ...string) []string {
	var out []string
	for _, sel := range selectors {
		p.doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				out = append(out, strings.TrimSpace(v))
			}
		})
	}
	return out
}
