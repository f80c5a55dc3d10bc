package normalize

import "github.com/jonathan/clipart-crawler/internal/types"

// PathSeparator joins ancestor category names into a manifest key.
const PathSeparator = "/"

// Flatten walks the tree depth-first and returns a manifest keyed by category path.
// A node contributes a key only when it has images of its own; its children are
// always visited with the node's path as their prefix.
func Flatten(tree types.CategoryTree) *types.Manifest {
	b := types.NewManifestBuilder()
	for _, cat := range tree {
		flattenInto(b, cat, "")
	}
	return b.Build()
}

func flattenInto(b *types.ManifestBuilder, cat types.Category, parent string) {
	p := cat.Name
	if parent != "" {
		p = parent + PathSeparator + cat.Name
	}

	if len(cat.Images) > 0 {
		b.Add(p, cat.Images...)
	}

	for _, child := range cat.Children {
		flattenInto(b, child, p)
	}
}
