package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"decktracker/internal/domain/repository"
)

// RedisRepository implements the ResponseCache interface using Redis as the
// backend. It holds raw upstream payloads, derived statistics, and the
// rate-limit counters; key expiry is enforced by Redis itself.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(addr, password string, db int) *RedisRepository {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRepository{client: client}
}

// Ensure RedisRepository implements the ResponseCache interface.
var _ repository.ResponseCache = (*RedisRepository)(nil)

// Get returns the value stored at key. A missing or expired key reports
// ok=false, not an error.
func (r *RedisRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// SetWithTTL stores value under key with the given expiry.
func (r *RedisRepository) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Increment atomically increments the counter at key.
func (r *RedisRepository) Increment(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

// FlushAll clears the whole database. Administrative use only.
func (r *RedisRepository) FlushAll(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

// Ping reports whether Redis is reachable.
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
