package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited marks endpoints that bypass limiting.
var unlimited = Rule{}

// Match returns the rule for method and path, or false when the default applies.
// Exact paths win over prefixes.
func Match(method, path string, rules []Rule) (Rule, bool) {
	if method == http.MethodGet && path == "/health" {
		return unlimited, true
	}

	for _, r := range rules {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	for _, r := range rules {
		if r.Method == method && strings.HasSuffix(r.Path, "/") && strings.HasPrefix(path, r.Path) {
			return r, true
		}
	}
	return Rule{}, false
}
