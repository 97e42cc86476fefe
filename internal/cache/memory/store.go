// Package memory implements cache.Store in process memory, for tests and
// -use-memory runs.
package memory

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"crypto-market-lab/internal/cache"
)

// Store is an in-memory implementation of cache.Store.
type Store struct {
	mu     sync.RWMutex
	data   map[string]cache.Envelope
	logger *log.Logger
	now    func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data:   make(map[string]cache.Envelope),
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithLogger sets the logger for persistence failures.
func (s *Store) WithLogger(logger *log.Logger) *Store {
	s.logger = logger
	return s
}

// WithClock sets a custom clock for deterministic tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Get returns the payload for key regardless of age.
func (s *Store) Get(_ context.Context, key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return env.Data, true
}

// GetFresh returns the payload only if the entry is no older than maxAge.
func (s *Store) GetFresh(_ context.Context, key string, maxAge time.Duration) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	env, ok := s.data[key]
	if !ok || !env.Fresh(s.now(), maxAge) {
		return nil, false
	}
	return env.Data, true
}

// Set stores payload under key with the current time.
func (s *Store) Set(_ context.Context, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("[cache] marshal %s: %v", key, err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = cache.Envelope{Timestamp: s.now(), Data: data}
}

// Delete removes the entry for key.
func (s *Store) Delete(_ context.Context, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Clear removes all entries.
func (s *Store) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]cache.Envelope)
}
