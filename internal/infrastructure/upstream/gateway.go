// Package upstream implements the single choke point for all calls to the
// external stats API. It owns response caching, bounded retry on upstream
// rate limiting, and translation of transport failures into domain errors.
package upstream

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
)

const maxAttempts = 2

// Config holds gateway settings.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	CacheTTL   time.Duration
	RetryAfter time.Duration
}

// Gateway performs cached GET requests against the upstream stats API.
// Within one request the order is strictly cache read, upstream call, cache
// write; failed calls never write the cache.
type Gateway struct {
	client    *http.Client
	cache     repository.ResponseCache
	analytics repository.RequestAnalytics
	log       *slog.Logger
	cfg       Config
}

// NewGateway creates a Gateway. analytics may be nil; call records are then
// dropped.
func NewGateway(cfg Config, cache repository.ResponseCache, analytics repository.RequestAnalytics, log *slog.Logger) *Gateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAfter == 0 {
		cfg.RetryAfter = time.Second
	}
	return &Gateway{
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     cache,
		analytics: analytics,
		log:       log,
		cfg:       cfg,
	}
}

// Ensure Gateway implements the StatsAPI interface.
var _ repository.StatsAPI = (*Gateway)(nil)

// CacheKey computes the cache key for a path and parameter set. url.Values
// encoding sorts by key, so semantically equal parameter sets hash
// identically regardless of insertion order.
func CacheKey(path string, params url.Values) string {
	sum := md5.Sum([]byte(params.Encode()))
	return fmt.Sprintf("api:%s:%x", path, sum)
}

// Get returns the JSON payload for path, from cache when present, otherwise
// from the upstream API. A 429 response is retried exactly once after a fixed
// backoff; a second 429 surfaces as an upstream error.
func (g *Gateway) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	key := CacheKey(path, params)

	if cached, ok, err := g.cache.Get(ctx, key); err != nil {
		g.log.Warn("cache read failed", "path", path, "err", err)
	} else if ok {
		g.log.Debug("cache hit", "path", path)
		g.record(ctx, path, http.StatusOK, true, 0)
		return json.RawMessage(cached), nil
	}

	g.log.Debug("cache miss", "path", path)
	start := time.Now()

	resp, err := g.doRequest(ctx, path, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", model.ErrUpstreamUnavailable, err)
	}

	g.record(ctx, path, resp.StatusCode, false, time.Since(start).Milliseconds())

	if err := g.mapStatus(path, resp.StatusCode, body); err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, &model.UpstreamStatusError{Status: resp.StatusCode, Body: "invalid JSON body"}
	}

	if err := g.cache.SetWithTTL(ctx, key, body, g.cfg.CacheTTL); err != nil {
		g.log.Warn("cache write failed", "path", path, "err", err)
	}
	return json.RawMessage(body), nil
}

// doRequest performs the upstream call with bounded retry: at most
// maxAttempts attempts, retrying only on 429 after the fixed backoff.
func (g *Gateway) doRequest(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	var resp *http.Response

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("building upstream request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
		req.Header.Set("Accept", "application/json")
		if params != nil {
			req.URL.RawQuery = params.Encode()
		}

		resp, err = g.client.Do(req)
		if err != nil {
			return nil, g.mapTransportError(path, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt == maxAttempts {
			return resp, nil
		}

		resp.Body.Close()
		g.log.Warn("upstream rate limited, retrying once", "path", path, "backoff", g.cfg.RetryAfter)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", model.ErrUpstreamTimeout, ctx.Err())
		case <-time.After(g.cfg.RetryAfter):
		}
	}

	return resp, nil
}

// mapTransportError classifies connection-level failures.
func (g *Gateway) mapTransportError(path string, err error) error {
	var urlErr *url.Error
	timedOut := errors.As(err, &urlErr) && urlErr.Timeout()
	if timedOut || errors.Is(err, context.DeadlineExceeded) {
		g.log.Error("upstream timeout", "path", path)
		return fmt.Errorf("%w: %s", model.ErrUpstreamTimeout, path)
	}
	g.log.Error("upstream connection failed", "path", path, "err", err)
	return fmt.Errorf("%w: %v", model.ErrUpstreamUnavailable, err)
}

// mapStatus translates upstream error statuses into domain errors. 404
// messages carry a hint derived from the requested path so callers surface
// something actionable.
func (g *Gateway) mapStatus(path string, status int, body []byte) error {
	switch {
	case status == http.StatusNotFound:
		lower := strings.ToLower(path)
		switch {
		case strings.Contains(lower, "clan"):
			return fmt.Errorf("%w: clan not found, check that the clan tag is correct (e.g. #ABC123)", model.ErrNotFound)
		case strings.Contains(lower, "player"):
			return fmt.Errorf("%w: player not found, check that the player tag is correct", model.ErrNotFound)
		default:
			return fmt.Errorf("%w: resource not found", model.ErrNotFound)
		}
	case status == http.StatusForbidden:
		g.log.Error("upstream rejected credentials", "path", path)
		return fmt.Errorf("%w: check the API token", model.ErrAuthDenied)
	case status >= 400:
		g.log.Error("upstream error", "path", path, "status", status)
		return &model.UpstreamStatusError{Status: status, Body: string(body)}
	}
	return nil
}

// record reports one call to the analytics sink, when configured.
func (g *Gateway) record(ctx context.Context, path string, status int, hit bool, durationMS int64) {
	if g.analytics == nil {
		return
	}
	rec := &repository.UpstreamRequestRecord{
		Path:        path,
		Status:      status,
		CacheHit:    hit,
		DurationMS:  durationMS,
		RequestedAt: time.Now().UTC(),
	}
	if err := g.analytics.RecordRequest(ctx, rec); err != nil {
		g.log.Debug("analytics record failed", "path", path, "err", err)
	}
}
