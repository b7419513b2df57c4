package chat

import (
	"errors"
	"fmt"
	"net/http"

	"murmur/model"
)

// FormatError renders a generation failure as the assistant-authored
// transcript message users see. It carries enough detail to diagnose
// configuration problems; API keys are never part of the underlying error
// text, so none can leak here.
func FormatError(err error) string {
	var provErr *model.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Sprintf("⚠️ The provider rejected the request (HTTP %d): %s\n\nCheck your API key configuration.", provErr.StatusCode, provErr.Message)
		case http.StatusTooManyRequests:
			return fmt.Sprintf("⚠️ Rate limited by the provider (HTTP %d): %s\n\nWait a moment and try again.", provErr.StatusCode, provErr.Message)
		default:
			return fmt.Sprintf("⚠️ The provider rejected the request (HTTP %d): %s", provErr.StatusCode, provErr.Message)
		}
	}

	if errors.Is(err, model.ErrMissingProxyURL) {
		return "⚠️ No proxy endpoint is configured for the selected backend. Set the proxy URL in your configuration, or switch to the direct backend."
	}

	if errors.Is(err, model.ErrTransport) {
		return fmt.Sprintf("⚠️ Could not reach the model provider: %v\n\nCheck your network connection and endpoint configuration.", err)
	}

	return fmt.Sprintf("⚠️ Error: %v", err)
}
