package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
)

// Store is a Postgres-backed implementation of cache.Store. Each Set is a
// single upsert, so an entry is always a whole-record replacement; staleness
// is evaluated against the written_at column.
type Store struct {
	pool   *Pool
	logger *log.Logger
	now    func() time.Time
}

// NewStore creates a cache store on the given pool and applies the schema.
func NewStore(ctx context.Context, pool *Pool) (*Store, error) {
	if err := Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return &Store{
		pool:   pool,
		logger: log.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
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
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM cache_entries WHERE key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Printf("[cache] get %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

// GetFresh returns the payload only if the entry is no older than maxAge.
func (s *Store) GetFresh(ctx context.Context, key string, maxAge time.Duration) (json.RawMessage, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM cache_entries WHERE key = $1 AND written_at >= $2`,
		key, s.now().Add(-maxAge),
	).Scan(&payload)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Printf("[cache] get %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under key with the current time. Failures are logged and
// swallowed, keeping caching best-effort.
func (s *Store) Set(ctx context.Context, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Printf("[cache] marshal %s: %v", key, err)
		return
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO cache_entries (key, payload, written_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET payload = $2, written_at = $3`,
		key, data, s.now(),
	)
	if err != nil {
		s.logger.Printf("[cache] set %s: %v", key, err)
	}
}

// Delete removes the entry for key.
func (s *Store) Delete(ctx context.Context, key string) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		s.logger.Printf("[cache] delete %s: %v", key, err)
	}
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cache_entries`); err != nil {
		s.logger.Printf("[cache] clear: %v", err)
	}
}
