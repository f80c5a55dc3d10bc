// Package normalize converts vendor configuration payloads into a canonical
// category tree and flattens that tree into a download manifest.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/clipart-crawler/internal/types"
)

const (
	// LegacyAssetBase prefixes legacy storage keys
	LegacyAssetBase = "https://assets.medzt.com/"
	// PartnerAssetBase prefixes partner thumbnail paths
	PartnerAssetBase = "https://assets.buildyou.io/"
)

// Normalizer turns one schema kind's payload into a category tree.
// Implementations never fail: missing data yields fewer categories or images.
type Normalizer interface {
	Kind() types.SchemaKind
	Normalize(payload any, opts Options) types.CategoryTree
}

// Options tunes normalization
type Options struct {
	// SkipThumbnails suppresses thumbnail-role images (legacy schema only)
	SkipThumbnails bool
}

var registry = map[types.SchemaKind]Normalizer{
	types.SchemaLegacy:  legacyNormalizer{},
	types.SchemaUnified: unifiedNormalizer{},
	types.SchemaPartner: partnerNormalizer{},
}

// For returns the normalizer for kind. Unknown or empty kinds use the legacy
// normalizer, since legacy is the only shape recoverable without classification.
func For(kind types.SchemaKind) Normalizer {
	if n, ok := registry[kind]; ok {
		return n
	}
	return registry[types.SchemaLegacy]
}

// Normalize converts a decoded payload of the given kind into a category tree.
func Normalize(payload any, kind types.SchemaKind, skipThumbnails bool) types.CategoryTree {
	return For(kind).Normalize(payload, Options{SkipThumbnails: skipThumbnails})
}

// Decode parses raw JSON into the generic value shape the normalizers navigate.
func Decode(raw []byte) (any, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse configuration JSON: %w", err)
	}
	return payload, nil
}

// NormalizeBytes decodes raw and normalizes it. Undecodable input yields an empty tree.
func NormalizeBytes(raw []byte, kind types.SchemaKind, skipThumbnails bool) types.CategoryTree {
	payload, err := Decode(raw)
	if err != nil {
		return types.CategoryTree{}
	}
	return Normalize(payload, kind, skipThumbnails)
}
