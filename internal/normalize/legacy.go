package normalize

import "github.com/jonathan/clipart-crawler/internal/types"

// legacyNormalizer reads the ready-made clipartCategories tree
type legacyNormalizer struct{}

func (legacyNormalizer) Kind() types.SchemaKind { return types.SchemaLegacy }

func (legacyNormalizer) Normalize(payload any, opts Options) types.CategoryTree {
	return legacyCategories(list(field(payload, "clipartCategories")), opts)
}

func legacyCategories(nodes []any, opts Options) types.CategoryTree {
	tree := make(types.CategoryTree, 0, len(nodes))
	for _, node := range nodes {
		if _, ok := node.(map[string]any); !ok {
			continue
		}
		tree = append(tree, legacyCategory(node, opts))
	}
	return tree
}

func legacyCategory(node any, opts Options) types.Category {
	cat := types.Category{
		Name:   labelOr(node, types.UnknownName, "title", "label"),
		Images: []types.ImageRef{},
	}

	for _, clip := range list(field(node, "cliparts")) {
		cat.Images = append(cat.Images, legacyImages(clip, opts)...)
	}

	if children := list(field(node, "children")); len(children) > 0 {
		cat.Children = legacyCategories(children, opts)
	}
	return cat
}

// legacyImages resolves one clipart entry into its primary image and, when
// distinct and not skipped, its thumbnail.
func legacyImages(clip any, opts Options) []types.ImageRef {
	var refs []types.ImageRef
	label := firstString(clip, "title", "label")

	fileKey := storageKey(field(clip, "file"))
	if fileKey != "" {
		refs = append(refs, types.NewImageRef(LegacyAssetBase+fileKey, label, types.RolePrimary))
	}

	if opts.SkipThumbnails {
		return refs
	}

	thumbKey := storageKey(field(clip, "thumbnail"))
	if thumbKey != "" && thumbKey != fileKey {
		refs = append(refs, types.NewImageRef(LegacyAssetBase+thumbKey, label+" (thumbnail)", types.RoleThumbnail))
	}
	return refs
}
