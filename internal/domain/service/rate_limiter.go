package service

import (
	"context"
	"strconv"
	"time"

	"decktracker/internal/domain/repository"
)

// RateLimiter is a fixed-window request counter backed by the shared cache.
// The first request in a window stores counter=1 with TTL=window; requests
// increment while the counter is below the limit; once the counter reaches
// the limit further requests are denied without incrementing. Window expiry
// is enforced by the cache store.
type RateLimiter struct {
	cache  repository.ResponseCache
	prefix string
	limit  int64
	window time.Duration
}

// NewRateLimiter creates a limiter with its own key namespace. Limiters with
// different prefixes count independently, so the strict auth policy cannot be
// starved by general traffic.
func NewRateLimiter(cache repository.ResponseCache, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow reports whether a request from identifier is admitted in the current
// window. Cache errors fail open: losing a window of rate limiting is better
// than refusing all traffic while the cache is down.
func (l *RateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	key := l.prefix + identifier

	value, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		return true, err
	}
	if !ok {
		if err := l.cache.SetWithTTL(ctx, key, []byte("1"), l.window); err != nil {
			return true, err
		}
		return true, nil
	}

	count, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return true, err
	}
	if count < l.limit {
		if _, err := l.cache.Increment(ctx, key); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}
