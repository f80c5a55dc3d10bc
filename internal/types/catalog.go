package types

import "strings"

// DefaultFilename is used when an image URL is empty or ends in a slash.
const DefaultFilename = "unknown.png"

// UnknownName is the fallback label for categories and values without one.
const UnknownName = "Unknown"

// ImageRole distinguishes a clipart's main image from its thumbnail
type ImageRole string

const (
	// RolePrimary is the main image for a clipart entry
	RolePrimary ImageRole = "primary"
	// RoleThumbnail is a separate thumbnail asset (legacy schema only)
	RoleThumbnail ImageRole = "thumbnail"
)

// ImageRef points at one downloadable image
type ImageRef struct {
	SourceURL       string    `json:"url"`
	DisplayLabel    string    `json:"label"`
	DerivedFilename string    `json:"filename"`
	Role            ImageRole `json:"role"`
}

// NewImageRef builds an ImageRef whose filename is derived from sourceURL.
func NewImageRef(sourceURL, label string, role ImageRole) ImageRef {
	return ImageRef{
		SourceURL:       sourceURL,
		DisplayLabel:    label,
		DerivedFilename: FilenameFromURL(sourceURL),
		Role:            role,
	}
}

// FilenameFromURL returns the final "/"-delimited segment of u.
// The whole string is returned when u has no slash; DefaultFilename when the segment is empty.
func FilenameFromURL(u string) string {
	name := u
	if i := strings.LastIndex(u, "/"); i >= 0 {
		name = u[i+1:]
	}
	if name == "" {
		return DefaultFilename
	}
	return name
}

// Category is one node of the normalized clipart tree
type Category struct {
	Name     string     `json:"name"`
	Images   []ImageRef `json:"images"`
	Children []Category `json:"children,omitempty"`
}

// CategoryTree is the ordered list of top-level categories
type CategoryTree []Category

// ImageCount returns the number of images in the tree, descendants included.
func (t CategoryTree) ImageCount() int {
	total := 0
	for _, c := range t {
		total += len(c.Images) + CategoryTree(c.Children).ImageCount()
	}
	return total
}

// Counts summarizes a manifest for progress scaling and reporting
type Counts struct {
	TotalCategories int `json:"total_categories"`
	TotalImages     int `json:"total_images"`
}
