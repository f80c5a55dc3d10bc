// Package fetch - platform.go provides storefront platform detection and product URL helpers.
package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform represents a known storefront platform.
type Platform string

const (
	// PlatformShopify is a Shopify storefront (custom domain or *.myshopify.com)
	PlatformShopify Platform = "shopify"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// productPathPattern matches Shopify product paths, including collection-scoped ones.
var productPathPattern = regexp.MustCompile(`/products/([^?/]+)`)

// DetectPlatform identifies the storefront platform from a product page URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)
	if strings.HasSuffix(host, ".myshopify.com") {
		return PlatformShopify
	}

	// Custom domains are recognized by the product route shape
	if productPathPattern.MatchString(parsed.Path) {
		return PlatformShopify
	}

	return PlatformUnknown
}

// ProductHandle extracts the product handle from a URL or path.
func ProductHandle(urlOrPath string) (string, bool) {
	p := urlOrPath
	if parsed, err := url.Parse(urlOrPath); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	m := productPathPattern.FindStringSubmatch(p)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}
