package normalize

import "github.com/jonathan/clipart-crawler/internal/types"

// unifiedNormalizer reads sets[0].options[]; each option is one flat category
type unifiedNormalizer struct{}

func (unifiedNormalizer) Kind() types.SchemaKind { return types.SchemaUnified }

func (unifiedNormalizer) Normalize(payload any, _ Options) types.CategoryTree {
	sets := list(field(payload, "sets"))
	if len(sets) == 0 {
		return types.CategoryTree{}
	}
	return valueCategories(list(field(sets[0], "options")), func(val any) string {
		imageURL := str(field(val, "thumb_image"))
		if !nonBlank(imageURL) {
			return ""
		}
		return imageURL
	})
}

// valueCategories builds one category per option-like element. resolve maps a
// value to its image URL, or "" to drop it. Categories left empty are dropped.
func valueCategories(elements []any, resolve func(val any) string) types.CategoryTree {
	tree := types.CategoryTree{}
	for _, el := range elements {
		cat := types.Category{
			Name:   labelOr(el, types.UnknownName, "label"),
			Images: []types.ImageRef{},
		}
		for _, val := range list(field(el, "values")) {
			imageURL := resolve(val)
			if imageURL == "" {
				continue
			}
			label := labelOr(val, types.UnknownName, "tooltip", "value")
			cat.Images = append(cat.Images, types.NewImageRef(imageURL, label, types.RolePrimary))
		}
		if len(cat.Images) > 0 {
			tree = append(tree, cat)
		}
	}
	return tree
}
