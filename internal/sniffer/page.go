package sniffer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/clipart-crawler/internal/types"
)

// Page is the live, possibly still loading storefront page the sniffer inspects.
// fetch.BrowserPage implements it against headless Chrome; StaticPage against fixed HTML.
type Page interface {
	URL() string
	HTML(ctx context.Context) (string, error)
	ResourceURLs(ctx context.Context) ([]string, error)
	Scripts(ctx context.Context) ([]string, error)
	MetaContent(ctx context.Context, name string) (string, error)
	// EvalString evaluates expr in the page's own context; missing values yield "".
	EvalString(ctx context.Context, expr string) (string, error)
	// PartnerIDs reads the partner widget identifiers, possibly incomplete.
	PartnerIDs(ctx context.Context) (types.PartnerIDs, error)
}

// StaticPage is a Page over fixed markup with optional simulated resources and globals.
type StaticPage struct {
	url       string
	html      string
	doc       *goquery.Document
	resources []string
	globals   map[string]string
	partner   func(attempt int) types.PartnerIDs

	mu       sync.Mutex
	attempts int
}

// StaticOption configures a StaticPage
type StaticOption func(*StaticPage)

// WithResources sets the simulated resource-timing entries.
func WithResources(urls ...string) StaticOption {
	return func(p *StaticPage) { p.resources = urls }
}

// WithGlobal sets the value EvalString returns for expr.
func WithGlobal(expr, value string) StaticOption {
	return func(p *StaticPage) { p.globals[expr] = value }
}

// WithPartnerIDs makes the partner identifiers available from the given poll attempt (1-based).
func WithPartnerIDs(ids types.PartnerIDs, fromAttempt int) StaticOption {
	return func(p *StaticPage) {
		p.partner = func(attempt int) types.PartnerIDs {
			if attempt >= fromAttempt {
				return ids
			}
			return types.PartnerIDs{}
		}
	}
}

// NewStaticPage parses html and returns a Page for it.
func NewStaticPage(pageURL, html string, opts ...StaticOption) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	p := &StaticPage{url: pageURL, html: html, doc: doc, globals: map[string]string{}}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// URL implements Page
func (p *StaticPage) URL() string { return p.url }

// HTML implements Page
func (p *StaticPage) HTML(context.Context) (string, error) { return p.html, nil }

// ResourceURLs implements Page
func (p *StaticPage) ResourceURLs(context.Context) ([]string, error) { return p.resources, nil }

// Scripts implements Page
func (p *StaticPage) Scripts(context.Context) ([]string, error) {
	var bodies []string
	p.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		bodies = append(bodies, s.Text())
	})
	return bodies, nil
}

// MetaContent implements Page
func (p *StaticPage) MetaContent(_ context.Context, name string) (string, error) {
	content, _ := p.doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return content, nil
}

// EvalString implements Page
func (p *StaticPage) EvalString(_ context.Context, expr string) (string, error) {
	return p.globals[expr], nil
}

// PartnerIDs implements Page
func (p *StaticPage) PartnerIDs(context.Context) (types.PartnerIDs, error) {
	p.mu.Lock()
	p.attempts++
	n := p.attempts
	p.mu.Unlock()

	if p.partner == nil {
		return types.PartnerIDs{}, nil
	}
	return p.partner(n), nil
}

// snapshot memoizes the expensive reads of a page for one detection pass.
type snapshot struct {
	Page

	html       string
	htmlErr    error
	htmlLoaded bool
}

func newSnapshot(p Page) *snapshot {
	return &snapshot{Page: p}
}

func (s *snapshot) HTML(ctx context.Context) (string, error) {
	if !s.htmlLoaded {
		s.html, s.htmlErr = s.Page.HTML(ctx)
		s.htmlLoaded = true
	}
	return s.html, s.htmlErr
}
