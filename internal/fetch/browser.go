// Package fetch - browser.go drives a headless Chrome tab so detection can see
// the rendered page, its network activity and its page-defined globals.
package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/clipart-crawler/internal/logging"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// DefaultBrowserTimeout bounds the whole lifetime of a browser page.
const DefaultBrowserTimeout = 90 * time.Second

const (
	resourceNamesJS = `performance.getEntriesByType('resource').map(e => e.name)`
	scriptBodiesJS  = `Array.from(document.querySelectorAll('script')).map(s => s.textContent || '')`
	metaContentJS   = `(() => { const m = document.querySelector('meta[name=%q]'); return m ? (m.content || '') : ''; })()`
	evalStringJS    = `(() => { try { const v = (%s); return v == null ? '' : String(v); } catch (e) { return ''; } })()`
	partnerIDsJS    = `(() => {
		const g = window.BuildYou || window.buildyou || null;
		if (!g) { return { slug: '', store: '' }; }
		const p = g.product || {};
		return { slug: String(g.productSlug || p.slug || ''), store: String(g.storeSlug || g.store || '') };
	})()`
)

// BrowserOptions configures a headless browser page.
type BrowserOptions struct {
	Timeout time.Duration
	// OnResource is called from the CDP event loop for every response the page receives.
	OnResource func(url string)
	Logger     *zap.Logger
}

// BrowserPage is a loaded page in a headless Chrome tab.
// Requires Chrome/Chromium to be installed on the system.
type BrowserPage struct {
	url    string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// OpenBrowserPage starts a headless browser, subscribes to network responses
// and navigates to urlStr. Close must be called to release the browser.
func OpenBrowserPage(ctx context.Context, urlStr string, opts BrowserOptions) (*BrowserPage, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultBrowserTimeout
	}
	logger := logging.OrNop(opts.Logger)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	tabCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)

	cancel := func() {
		cancelTimeout()
		cancelBrowser()
		cancelAlloc()
	}

	if opts.OnResource != nil {
		chromedp.ListenTarget(tabCtx, func(ev interface{}) {
			if resp, ok := ev.(*network.EventResponseReceived); ok && resp.Response != nil {
				opts.OnResource(resp.Response.URL)
			}
		})
	}

	logger.Info("Opening browser page", zap.String("url", urlStr))
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(urlStr),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("browser navigation failed: %w", err)
	}

	return &BrowserPage{url: urlStr, ctx: tabCtx, cancel: cancel, logger: logger}, nil
}

// Close shuts the tab and its browser down.
func (p *BrowserPage) Close() {
	p.cancel()
}

// URL returns the address the page was opened with.
func (p *BrowserPage) URL() string {
	return p.url
}

// run executes actions on the tab, stopping early if ctx is cancelled.
func (p *BrowserPage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// HTML returns the rendered document markup.
func (p *BrowserPage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}
	return html, nil
}

// ResourceURLs returns the names of the recorded resource-timing entries.
func (p *BrowserPage) ResourceURLs(ctx context.Context) ([]string, error) {
	var names []string
	if err := p.run(ctx, chromedp.Evaluate(resourceNamesJS, &names)); err != nil {
		return nil, fmt.Errorf("failed to read resource timing: %w", err)
	}
	return names, nil
}

// Scripts returns the text of every script element.
func (p *BrowserPage) Scripts(ctx context.Context) ([]string, error) {
	var bodies []string
	if err := p.run(ctx, chromedp.Evaluate(scriptBodiesJS, &bodies)); err != nil {
		return nil, fmt.Errorf("failed to read scripts: %w", err)
	}
	return bodies, nil
}

// MetaContent returns the content of meta[name=name], or "".
func (p *BrowserPage) MetaContent(ctx context.Context, name string) (string, error) {
	var content string
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(metaContentJS, name), &content)); err != nil {
		return "", fmt.Errorf("failed to read meta %s: %w", name, err)
	}
	return content, nil
}

// EvalString evaluates a JavaScript expression in the page's own context and
// returns it as a string. Missing globals and thrown errors yield "".
func (p *BrowserPage) EvalString(ctx context.Context, expr string) (string, error) {
	var out string
	if err := p.run(ctx, chromedp.Evaluate(fmt.Sprintf(evalStringJS, expr), &out)); err != nil {
		return "", fmt.Errorf("failed to evaluate %s: %w", expr, err)
	}
	return out, nil
}

// PartnerIDs reads the partner widget's product slug and store identifier
// from the page-defined global, if it has been initialized yet.
func (p *BrowserPage) PartnerIDs(ctx context.Context) (types.PartnerIDs, error) {
	var ids types.PartnerIDs
	if err := p.run(ctx, chromedp.Evaluate(partnerIDsJS, &ids)); err != nil {
		return types.PartnerIDs{}, fmt.Errorf("failed to read partner globals: %w", err)
	}
	return ids, nil
}
