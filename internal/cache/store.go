// Package cache implements the advisory cache in front of the durable store.
//
// A Store moves opaque bytes with a per-key expiry. Two backends exist:
// RedisStore for shared deployments and MemoryStore for a single process.
// Callers in the service layer never talk to a Store directly; they go
// through Adapter, which serializes values as JSON and turns every backend
// failure into a logged miss or no-op.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Key families.
const (
	rankingKey    = "ranking:top"
	recencyPrefix = "recency:"
)

// RecencyKey is the cache key of userID's recency list snapshot.
func RecencyKey(userID string) string { return recencyPrefix + userID }

// RankingKey is the cache key of the global top-viewed snapshot.
func RankingKey() string { return rankingKey }

// Store is the byte-level contract shared by cache backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and tunes a backend.
type Options struct {
	Backend    string // redis|memory
	Addr       string
	Password   string
	DB         int
	MaxRetries int
}

// NewStore builds the backend named by opts.Backend.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "redis":
		return NewRedisStore(ctx, opts)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
	}
}
