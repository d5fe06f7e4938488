package provider

import (
	"fmt"
	"net/http"

	"prompt2video/types"
)

// classifyStatus maps an HTTP status to the fallback policy's error classes.
// A nil return means the call succeeded.
func classifyStatus(provider string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	err := fmt.Errorf("HTTP %d: %s", status, snippet)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return types.NewProviderError(provider, types.ErrAuth, err)
	case status == http.StatusTooManyRequests:
		return types.NewProviderError(provider, types.ErrRateLimit, err)
	case status >= 400 && status < 500:
		return types.NewProviderError(provider, types.ErrContent, err)
	default:
		return types.NewProviderError(provider, types.ErrNetwork, err)
	}
}
