package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// cacheOps counts adapter operations by op (get|set|delete) and result
// (hit|miss|ok|error).
var cacheOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_operations_total",
		Help: "Cache adapter operations by op and result.",
	},
	[]string{"op", "result"},
)

func init() {
	prometheus.MustRegister(cacheOps)
}

// Adapter serializes values as JSON over a Store. The cache is advisory:
// backend errors are logged and reported as a miss (Get) or ignored
// (Set, Delete), so callers fall back to the durable store.
type Adapter struct {
	store Store
	ttl   time.Duration
}

// NewAdapter wraps store. ttl is the default expiry for Set with ttl <= 0.
func NewAdapter(store Store, ttl time.Duration) *Adapter {
	return &Adapter{store: store, ttl: ttl}
}

// Get decodes the value at key into dst and reports whether it was a hit.
// A value that no longer decodes is treated as a miss and dropped.
func (a *Adapter) Get(ctx context.Context, key string, dst any) bool {
	b, err := a.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrMiss):
		cacheOps.WithLabelValues("get", "miss").Inc()
		return false
	case err != nil:
		cacheOps.WithLabelValues("get", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache get failed; treating as miss")
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		cacheOps.WithLabelValues("get", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache value undecodable; dropping")
		_ = a.store.Delete(ctx, key)
		return false
	}
	cacheOps.WithLabelValues("get", "hit").Inc()
	return true
}

// Set stores v at key for ttl (the adapter default when ttl <= 0).
func (a *Adapter) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = a.ttl
	}
	b, err := json.Marshal(v)
	if err != nil {
		cacheOps.WithLabelValues("set", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		return
	}
	if err := a.store.Set(ctx, key, b, ttl); err != nil {
		cacheOps.WithLabelValues("set", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache set failed")
		return
	}
	cacheOps.WithLabelValues("set", "ok").Inc()
}

// Delete invalidates key.
func (a *Adapter) Delete(ctx context.Context, key string) {
	if err := a.store.Delete(ctx, key); err != nil {
		cacheOps.WithLabelValues("delete", "error").Inc()
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache delete failed")
		return
	}
	cacheOps.WithLabelValues("delete", "ok").Inc()
}

// Ping reports backend reachability for readiness checks. Unlike the other
// methods it returns the error.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the backend.
func (a *Adapter) Close() error { return a.store.Close() }
