package resolve

import (
	"fmt"
	"net/http"
)

// remediation is shown to the user when no configuration endpoint can be located.
const remediation = "Could not find configuration URL. Please make sure:\n" +
	"1. The page has fully loaded\n" +
	"2. The product uses the personalization widget\n" +
	"3. Try refreshing the page and starting again"

// DetectionError means neither the bridge nor the page fallback produced an endpoint.
type DetectionError struct {
	PageURL string
	Cause   error
}

func (e *DetectionError) Error() string {
	return remediation
}

func (e *DetectionError) Unwrap() error {
	return e.Cause
}

// FetchError means the configuration endpoint could not be fetched or decoded.
// StatusCode and Body are set when the server answered with a non-success status.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 && (e.StatusCode < http.StatusOK || e.StatusCode >= http.StatusMultipleChoices) {
		return fmt.Sprintf("Failed to fetch configuration (HTTP %d): %s", e.StatusCode, e.Body)
	}
	if e.Cause != nil {
		return fmt.Sprintf("Failed to fetch configuration: %v", e.Cause)
	}
	return "Failed to fetch configuration"
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}
