package sniffer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var presenceSelectors = []string{
	".ant-form-item",
	`[class*="customily"]`,
	`[id*="customily"]`,
}

var presenceMarkers = []string{"customily", "medzt.com", "buildyou"}

// HasWidgetPresence reports whether html plausibly contains the personalization widget.
func HasWidgetPresence(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	for _, marker := range presenceMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, sel := range presenceSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
