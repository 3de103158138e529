package cache

import (
	"context"
	"time"
)

// Backend is the key-value service the cache store writes through.
// It mirrors the small Redis command surface the store needs, so that
// tests can substitute a mock backend with a controllable clock.
type Backend interface {
	// SetEx writes value under key with the given TTL. The backend is
	// responsible for evicting the entry once the TTL elapses.
	SetEx(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get reads the raw payload for key. The second return value reports
	// whether the key exists; an expired key reads as absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes the given keys. Deleting a missing key is not an error.
	Delete(ctx context.Context, keys ...string) error

	// Keys returns all keys matching the glob-style pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// FlushDB removes every key in the backend's logical database.
	FlushDB(ctx context.Context) error

	// Info returns backend server statistics as a field name to value map.
	Info(ctx context.Context) (map[string]string, error)

	// DBSize returns the number of keys in the logical database.
	DBSize(ctx context.Context) (int64, error)

	Close() error
}
