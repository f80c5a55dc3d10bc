package sniffer

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/clipart-crawler/internal/types"
)

const (
	legacyHost  = "sh.medzt.com"
	cdnHost     = "cdn.medzt.com"
	unifiedPath = "/api/settings/unified/"
	partnerHost = "api.buildyou.io"

	// partnerEndpointTemplate receives the store identifier and product slug
	partnerEndpointTemplate = "https://api.buildyou.io/v1/storefront/{store}/products/{slug}/customization"
	// legacyEndpointTemplate receives the myshopify domain and product handle
	legacyEndpointTemplate = "https://sh.medzt.com/{shop}/{handle}.json"
)

// Signature recognizes one family of configuration endpoint URLs
type Signature struct {
	Name  string
	Kind  types.SchemaKind
	Match func(u *url.URL) bool
}

// Signatures lists the endpoint families in classification order.
var Signatures = []Signature{
	{
		Name: "legacy",
		Kind: types.SchemaLegacy,
		Match: func(u *url.URL) bool {
			return strings.EqualFold(u.Host, legacyHost) && strings.Contains(u.Path, ".json")
		},
	},
	{
		Name: "legacy-cdn",
		Kind: types.SchemaLegacy,
		Match: func(u *url.URL) bool {
			return strings.EqualFold(u.Host, cdnHost) && strings.Contains(u.Path, ".json")
		},
	},
	{
		Name: "unified",
		Kind: types.SchemaUnified,
		Match: func(u *url.URL) bool {
			host := strings.ToLower(u.Host)
			return (host == "customily.com" || strings.HasSuffix(host, ".customily.com")) &&
				strings.Contains(u.Path, unifiedPath)
		},
	},
	{
		Name: "partner",
		Kind: types.SchemaPartner,
		Match: func(u *url.URL) bool {
			return strings.EqualFold(u.Host, partnerHost) && strings.HasPrefix(u.Path, "/v1/storefront/")
		},
	},
}

// Classify returns the schema kind of a configuration endpoint URL.
func Classify(rawURL string) (types.SchemaKind, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return types.SchemaNone, false
	}
	for _, sig := range Signatures {
		if sig.Match(u) {
			return sig.Kind, true
		}
	}
	return types.SchemaNone, false
}

// markupPatterns find legacy and CDN endpoint URLs inside markup, most specific first.
// Quoted variants capture the URL without its quotes.
var markupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://(?:sh|cdn)\.medzt\.com/[^"'\s<>]+\.json[^"'\s<>]*`),
	regexp.MustCompile(`https://(?:sh|cdn)\.medzt\.com/[^"'\s]+\.json`),
	regexp.MustCompile(`"(https://(?:sh|cdn)\.medzt\.com/[^"]+\.json[^"]*)"`),
	regexp.MustCompile(`'(https://(?:sh|cdn)\.medzt\.com/[^']+\.json[^']*)'`),
}

// scriptPattern finds endpoint URLs inside script bodies.
var scriptPattern = regexp.MustCompile(`https://(?:sh|cdn)\.medzt\.com/[^\s"']+\.json`)

// LegacyPagePattern is the single pattern used when re-deriving an endpoint from fetched HTML.
var LegacyPagePattern = regexp.MustCompile(`https://sh\.medzt\.com/[^"'\s<>]+\.json[^"'\s<>]*`)

// shopJSONPattern finds the myshopify domain in embedded JSON.
var shopJSONPattern = regexp.MustCompile(`"shop":\s*"([^"]+\.myshopify\.com)"`)

// findInMarkup returns the first endpoint URL found by the markup patterns.
func findInMarkup(html string) string {
	for _, p := range markupPatterns {
		m := p.FindStringSubmatch(html)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1]
		}
		return strings.Trim(m[0], `"'`)
	}
	return ""
}

// PartnerEndpoint fills the partner API template.
func PartnerEndpoint(ids types.PartnerIDs) string {
	r := strings.NewReplacer(
		"{store}", url.PathEscape(ids.Store),
		"{slug}", url.PathEscape(ids.Slug),
	)
	return r.Replace(partnerEndpointTemplate)
}

// LegacyEndpoint fills the legacy endpoint template.
func LegacyEndpoint(shopDomain, handle string) string {
	r := strings.NewReplacer("{shop}", shopDomain, "{handle}", handle)
	return r.Replace(legacyEndpointTemplate)
}
