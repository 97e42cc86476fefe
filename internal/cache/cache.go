// Package cache provides best-effort persistence of named JSON payloads with
// a write timestamp and staleness-bounded reads. A miss is a normal
// control-flow outcome, never an error; persistence failures are swallowed at
// the store boundary and only logged, since caching is an optimization rather
// than a correctness requirement.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store persists named JSON payloads. A Set fully replaces prior content for
// the key; entries are never partially updated. Implementations must treat
// malformed or unreadable entries as absent.
type Store interface {
	// Get returns the payload for key regardless of age.
	Get(ctx context.Context, key string) (json.RawMessage, bool)

	// GetFresh returns the payload only if the entry is no older than
	// maxAge. A zero or negative bound always misses.
	GetFresh(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, bool)

	// Set stores payload under key with the current time, overwriting any
	// prior entry. Persistence failures are logged and swallowed.
	Set(ctx context.Context, key string, payload any)

	// Delete removes one entry. Idempotent.
	Delete(ctx context.Context, key string)

	// Clear removes all entries. Idempotent.
	Clear(ctx context.Context)
}

// Envelope is the stored record: a write timestamp plus the embedded payload.
// The file store persists it verbatim as JSON.
type Envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Fresh reports whether the envelope is no older than maxAge at time now.
// A zero or negative bound is a zero-width freshness window: always stale.
func (e Envelope) Fresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) <= maxAge
}
