package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	backoffStep = 50 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// Backoff returns the wait before reconnect attempt n (1-based):
// min(n*50ms, 2s).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(attempt) * backoffStep
	if d > backoffCap {
		return backoffCap
	}
	return d
}

// RedisStore is a Store backed by a single long-lived go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with PING,
// retrying up to opts.MaxRetries times with Backoff between attempts.
// Command-level retries on connection loss use the same capped schedule.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		MaxRetries:      opts.MaxRetries,
		MinRetryBackoff: backoffStep,
		MaxRetryBackoff: backoffCap,
	})

	var err error
	for attempt := 0; ; attempt++ {
		if err = client.Ping(ctx).Err(); err == nil {
			break
		}
		if attempt >= opts.MaxRetries {
			_ = client.Close()
			return nil, fmt.Errorf("cache: redis %s: %w", opts.Addr, err)
		}
		wait := Backoff(attempt + 1)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("retry_in", wait).Msg("redis not reachable")
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an already configured client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (s *RedisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, val, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
