package normalize

import "github.com/jonathan/clipart-crawler/internal/types"

// partnerNormalizer reads data.customizationForm.elements[]
type partnerNormalizer struct{}

func (partnerNormalizer) Kind() types.SchemaKind { return types.SchemaPartner }

func (partnerNormalizer) Normalize(payload any, _ Options) types.CategoryTree {
	elements := list(path(payload, "data", "customizationForm", "elements"))
	return valueCategories(elements, func(val any) string {
		thumbPath := str(field(val, "thumbnailPath"))
		if !nonBlank(thumbPath) {
			return ""
		}
		return PartnerAssetBase + thumbPath
	})
}
