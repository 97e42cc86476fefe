// Package provider contains adapters for the external market-data sources.
// Each adapter builds the provider-specific request, acquires its rate
// limiter immediately before the network call, and normalizes the native
// response into domain series with UTC timestamps.
package provider

import (
	"errors"
	"net/http"
	"time"
)

// Failure modes surfaced to the acquisition pipeline.
var (
	// ErrRateLimited means the provider signaled throttling. Distinct from
	// exhausting local retries; always worth backing off and retrying.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrNotFound means the requested identifier is absent from the
	// provider's catalog. Retrying the same provider is pointless.
	ErrNotFound = errors.New("identifier not found")

	// ErrUnavailable covers network, parse, and empty-result failures.
	ErrUnavailable = errors.New("provider unavailable")
)

const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// classifyStatus maps an HTTP status code onto the failure taxonomy.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUnavailable
	}
}
