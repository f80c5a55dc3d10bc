package normalize

import "strings"

// Payloads are decoded into generic JSON values (map[string]any, []any, string,
// float64, bool, nil). These helpers treat anything missing or of the wrong type
// as empty so malformed input degrades instead of failing.

func field(v any, key string) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return obj[key]
}

func path(v any, keys ...string) any {
	for _, k := range keys {
		v = field(v, k)
	}
	return v
}

func list(v any) []any {
	arr, _ := v.([]any)
	return arr
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// firstString returns the first non-empty string among the named fields of v.
func firstString(v any, keys ...string) string {
	for _, k := range keys {
		if s := str(field(v, k)); s != "" {
			return s
		}
	}
	return ""
}

// labelOr returns the first non-empty label field or fallback.
func labelOr(v any, fallback string, keys ...string) string {
	if s := firstString(v, keys...); s != "" {
		return s
	}
	return fallback
}

// storageKey reads a file reference that is either a bare key string or an object with a "key" field.
func storageKey(v any) string {
	switch ref := v.(type) {
	case string:
		return ref
	case map[string]any:
		return str(ref["key"])
	default:
		return ""
	}
}

func nonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
