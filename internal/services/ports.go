package services

import (
	"context"
	"time"

	"github.com/tbourn/go-recently-viewed/internal/notify"
)

// Cache is the advisory key/value cache used by the read and write paths.
// Implementations never fail: a backend error reads as a miss.
type Cache interface {
	Get(ctx context.Context, key string, dst any) bool
	Set(ctx context.Context, key string, v any, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Dispatcher hands a notification to a background sender without blocking.
type Dispatcher interface {
	Dispatch(n notify.Notification) bool
}

// Caller is the verified identity performing a request.
type Caller struct {
	ID    string
	Email string
}

// noCache is used when a service is built without a cache.
type noCache struct{}

func (noCache) Get(context.Context, string, any) bool { return false }
func (noCache) Set(context.Context, string, any, time.Duration) {}
func (noCache) Delete(context.Context, string) {}

func cacheOrNone(c Cache) Cache {
	if c == nil {
		return noCache{}
	}
	return c
}
