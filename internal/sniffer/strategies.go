package sniffer

import (
	"context"
	"strings"

	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/retry"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// Strategy names recorded on found results
const (
	StrategyPartner  = "partner"
	StrategyObserver = "observer"
	StrategyTiming   = "resource-timing"
	StrategyMarkup   = "markup"
	StrategyMetadata = "metadata"
	StrategyScripts  = "scripts"
)

const shopifyShopExpr = "window.Shopify && window.Shopify.shop"

// partnerDetector polls the partner widget globals until both identifiers appear.
type partnerDetector struct {
	policy retry.Policy
}

func (d partnerDetector) Name() string { return StrategyPartner }

func (d partnerDetector) Attempt(ctx context.Context, page Page) (types.DetectionResult, bool) {
	ids, ok := retry.Poll(ctx, d.policy,
		func(ctx context.Context, _ int) types.PartnerIDs {
			ids, err := page.PartnerIDs(ctx)
			if err != nil {
				return types.PartnerIDs{}
			}
			return ids
		},
		types.PartnerIDs.Complete,
	)
	if !ok {
		return types.DetectionResult{}, false
	}
	return types.Found(page.URL(), PartnerEndpoint(ids), types.SchemaPartner, StrategyPartner), true
}

// observerDetector reads the slot the live network observer fills.
type observerDetector struct {
	slot *LastSeen
}

func (d observerDetector) Name() string { return StrategyObserver }

func (d observerDetector) Attempt(_ context.Context, page Page) (types.DetectionResult, bool) {
	if d.slot == nil {
		return types.DetectionResult{}, false
	}
	endpoint, kind, ok := d.slot.Get()
	if !ok {
		return types.DetectionResult{}, false
	}
	return types.Found(page.URL(), endpoint, kind, StrategyObserver), true
}

// timingDetector scans resources the page has already loaded.
type timingDetector struct{}

func (timingDetector) Name() string { return StrategyTiming }

func (timingDetector) Attempt(ctx context.Context, page Page) (types.DetectionResult, bool) {
	urls, err := page.ResourceURLs(ctx)
	if err != nil {
		return types.DetectionResult{}, false
	}
	for _, u := range urls {
		if kind, ok := Classify(u); ok {
			return types.Found(page.URL(), u, kind, StrategyTiming), true
		}
	}
	return types.DetectionResult{}, false
}

// markupDetector searches the serialized document for legacy endpoint URLs.
type markupDetector struct{}

func (markupDetector) Name() string { return StrategyMarkup }

func (markupDetector) Attempt(ctx context.Context, page Page) (types.DetectionResult, bool) {
	html, err := page.HTML(ctx)
	if err != nil {
		return types.DetectionResult{}, false
	}
	endpoint := findInMarkup(html)
	if endpoint == "" {
		return types.DetectionResult{}, false
	}
	return types.Found(page.URL(), endpoint, types.SchemaLegacy, StrategyMarkup), true
}

// metadataDetector synthesizes a legacy endpoint from the shop domain and product handle.
// The CDN form is never synthesized.
type metadataDetector struct{}

func (metadataDetector) Name() string { return StrategyMetadata }

func (metadataDetector) Attempt(ctx context.Context, page Page) (types.DetectionResult, bool) {
	handle, ok := fetch.ProductHandle(page.URL())
	if !ok {
		return types.DetectionResult{}, false
	}
	shop := shopDomain(ctx, page)
	if shop == "" {
		return types.DetectionResult{}, false
	}
	return types.Found(page.URL(), LegacyEndpoint(shop, handle), types.SchemaLegacy, StrategyMetadata), true
}

// shopDomain returns the myshopify domain from page metadata, the Shopify global, or embedded JSON.
func shopDomain(ctx context.Context, page Page) string {
	if v, err := page.MetaContent(ctx, "shopify-shop"); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, err := page.EvalString(ctx, shopifyShopExpr); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return ""
	}
	if m := shopJSONPattern.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// scriptsDetector scans inline script bodies.
type scriptsDetector struct{}

func (scriptsDetector) Name() string { return StrategyScripts }

func (scriptsDetector) Attempt(ctx context.Context, page Page) (types.DetectionResult, bool) {
	bodies, err := page.Scripts(ctx)
	if err != nil {
		return types.DetectionResult{}, false
	}
	for _, body := range bodies {
		if m := scriptPattern.FindString(body); m != "" {
			return types.Found(page.URL(), m, types.SchemaLegacy, StrategyScripts), true
		}
	}
	return types.DetectionResult{}, false
}
