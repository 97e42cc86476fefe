// Package file implements cache.Store with one JSON file per key.
package file

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"crypto-market-lab/internal/cache"
)

// Store keeps each entry in <dir>/<key>.json as
// {"timestamp": <RFC3339>, "data": <payload>}. Writes are whole-file
// replacement; there is no expiry sweep, stale files persist until
// overwritten.
type Store struct {
	dir    string
	logger *log.Logger
	now    func() time.Time
}

// New creates a file store rooted at dir, creating the directory if needed.
// Directory creation failure is logged, not returned: subsequent reads miss
// and writes fail softly, keeping the functional path alive.
func New(dir string) *Store {
	s := &Store{
		dir:    dir,
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Printf("[cache] create dir %s: %v", dir, err)
	}
	return s
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

// path maps a key to its file. Separator characters in the key are replaced
// so a hostile provider-supplied symbol cannot escape the cache directory.
func (s *Store) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.dir, safe+".json")
}

func (s *Store) read(key string) (cache.Envelope, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return cache.Envelope{}, false
	}
	var env cache.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return cache.Envelope{}, false
	}
	return env, true
}

// Get returns the payload for key regardless of age.
func (s *Store) Get(_ context.Context, key string) (json.RawMessage, bool) {
	env, ok := s.read(key)
	if !ok {
		return nil, false
	}
	return env.Data, true
}

// GetFresh returns the payload only if the entry is no older than maxAge.
func (s *Store) GetFresh(_ context.Context, key string, maxAge time.Duration) (json.RawMessage, bool) {
	env, ok := s.read(key)
	if !ok || !env.Fresh(s.now(), maxAge) {
		return nil, false
	}
	return env.Data, true
}

// Set stores payload under key with the current time. Failures are logged and
// swallowed.
func (s *Store) Set(_ context.Context, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("[cache] marshal %s: %v", key, err)
		return
	}
	env, err := json.Marshal(cache.Envelope{Timestamp: s.now(), Data: data})
	if err != nil {
		s.logger.Printf("[cache] marshal envelope %s: %v", key, err)
		return
	}
	if err := os.WriteFile(s.path(key), env, 0o644); err != nil {
		s.logger.Printf("[cache] write %s: %v", key, err)
	}
}

// Delete removes the entry for key. Missing files are fine.
func (s *Store) Delete(_ context.Context, key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("[cache] delete %s: %v", key, err)
	}
}

// Clear removes every cache file in the directory.
func (s *Store) Clear(_ context.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Printf("[cache] clear %s: %v", s.dir, err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Printf("[cache] clear %s: %v", entry.Name(), err)
		}
	}
}
