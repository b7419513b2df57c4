package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the chat core distinguishes.
// Use errors.Is to test for them.
var (
	// ErrTransport wraps network and timeout failures from the HTTP layer.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidState marks an internal invariant violation, e.g. replacing
	// the last message of an empty conversation. Programming error, not a
	// user-facing condition.
	ErrInvalidState = errors.New("invalid state")

	// ErrMissingProxyURL is returned by proxy backends constructed without a
	// configured endpoint. They must never attempt a call to an empty URL.
	ErrMissingProxyURL = errors.New("proxy URL not configured")
)

// ProviderError is a non-2xx response from the model provider. The message
// comes from the provider's error body; API keys never appear in it.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider rejected request (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("provider rejected request (HTTP %d): %s", e.StatusCode, e.Message)
}

// Is allows errors.Is(err, &ProviderError{}) style matching on the type.
func (e *ProviderError) Is(target error) bool {
	_, ok := target.(*ProviderError)
	return ok
}
