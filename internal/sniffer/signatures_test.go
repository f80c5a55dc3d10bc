package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/clipart-crawler/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   types.SchemaKind
		wantOK bool
	}{
		{"legacy", "https://sh.medzt.com/shop.myshopify.com/mug.json", types.SchemaLegacy, true},
		{"legacy with query", "https://sh.medzt.com/a/b.json?v=3", types.SchemaLegacy, true},
		{"legacy cdn", "https://cdn.medzt.com/a/b.json", types.SchemaLegacy, true},
		{"unified", "https://app.customily.com/api/settings/unified/abc123", types.SchemaUnified, true},
		{"unified bare host", "https://customily.com/api/settings/unified/x", types.SchemaUnified, true},
		{"partner", "https://api.buildyou.io/v1/storefront/s1/products/p1/customization", types.SchemaPartner, true},
		{"legacy host without json", "https://sh.medzt.com/images/a.png", types.SchemaNone, false},
		{"lookalike host", "https://sh.medzt.com.evil.io/a.json", types.SchemaNone, false},
		{"unrelated", "https://example.com/products/mug", types.SchemaNone, false},
		{"relative", "/api/settings/unified/x", types.SchemaNone, false},
		{"garbage", "::not a url", types.SchemaNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindInMarkup(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"bare", `<div data-x=https://sh.medzt.com/a/b.json></div>`, "https://sh.medzt.com/a/b.json"},
		{"double quoted", `<script src="https://sh.medzt.com/a/b.json?v=1"></script>`, "https://sh.medzt.com/a/b.json?v=1"},
		{"single quoted", `<script>load('https://cdn.medzt.com/a/b.json')</script>`, "https://cdn.medzt.com/a/b.json"},
		{"none", `<p>hello</p>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findInMarkup(tt.html))
		})
	}
}

func TestPartnerEndpoint(t *testing.T) {
	got := PartnerEndpoint(types.PartnerIDs{Slug: "p1", Store: "s1"})
	assert.Equal(t, "https://api.buildyou.io/v1/storefront/s1/products/p1/customization", got)

	kind, ok := Classify(got)
	assert.True(t, ok)
	assert.Equal(t, types.SchemaPartner, kind)
}

func TestLegacyEndpoint(t *testing.T) {
	got := LegacyEndpoint("shop.myshopify.com", "mug")
	assert.Equal(t, "https://sh.medzt.com/shop.myshopify.com/mug.json", got)
}
