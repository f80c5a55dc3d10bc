package archive

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/clipart-crawler/internal/fetch"
	"github.com/jonathan/clipart-crawler/internal/types"
)

// OutputDir is the folder archives are written under.
const OutputDir = "shopify-personalization"

// fallbackHandle names archives for pages without a product handle.
const fallbackHandle = "product"

const maxHandleLen = 50

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Sanitize replaces characters that are invalid in file names and trims whitespace.
func Sanitize(name string) string {
	return strings.TrimSpace(invalidNameChars.ReplaceAllString(name, "_"))
}

// ArchiveName returns "<handle>_<YYYY-MM-DDTHH-MM>.zip" for pageURL at t (UTC).
func ArchiveName(pageURL string, t time.Time) string {
	handle, ok := fetch.ProductHandle(pageURL)
	if !ok {
		handle = fallbackHandle
	}
	if len(handle) > maxHandleLen {
		handle = handle[:maxHandleLen]
	}
	return fmt.Sprintf("%s_%s.zip", handle, t.UTC().Format("2006-01-02T15-04"))
}

// unsafeSegment replaces path segments that are empty or dots only.
const unsafeSegment = "_"

// EntryName returns the zip entry path for the index-th (0-based) image of a manifest key.
// Category paths keep their "/" nesting as folders when organizeByCategory is set;
// otherwise the whole path is flattened into the file name. The result is always
// a local, relative path.
func EntryName(categoryPath string, index int, ref types.ImageRef, organizeByCategory bool) string {
	file := fmt.Sprintf("%03d_%s_%s", index+1, Sanitize(ref.DisplayLabel), invalidNameChars.ReplaceAllString(ref.DerivedFilename, "_"))
	if !organizeByCategory {
		return Sanitize(categoryPath) + "_" + file
	}

	name := sanitizePath(categoryPath) + "/" + file
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return safeSegment(strings.ReplaceAll(categoryPath, "/", "_")) + "_" + file
	}
	return name
}

func sanitizePath(categoryPath string) string {
	segments := strings.Split(categoryPath, "/")
	for i, s := range segments {
		segments[i] = safeSegment(s)
	}
	return strings.Join(segments, "/")
}

func safeSegment(s string) string {
	s = Sanitize(s)
	if strings.Trim(s, ".") == "" {
		return unsafeSegment
	}
	return s
}
