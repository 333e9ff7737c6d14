package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"decktracker/internal/domain/repository"
)

// ClickHouseAnalytics implements the RequestAnalytics interface using
// ClickHouse as an analytical sink for upstream gateway calls. It records
// one row per call (path, status, cache hit, latency) for offline analysis
// of cache effectiveness and upstream behavior. The service runs fine
// without it.
type ClickHouseAnalytics struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Username string
	Password string
	Timeout  int
}

func NewClickHouseAnalytics(cfg ClickHouseConfig) (*ClickHouseAnalytics, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := createAnalyticsTable(conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseAnalytics{conn: conn}, nil
}

// Ensure ClickHouseAnalytics implements the RequestAnalytics interface.
var _ repository.RequestAnalytics = (*ClickHouseAnalytics)(nil)

func createAnalyticsTable(conn driver.Conn) error {
	return conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS upstream_requests (
			path String,
			status UInt16,
			cache_hit UInt8,
			duration_ms Int64,
			requested_at DateTime,
			recorded_at DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (path, requested_at)
	`)
}

// RecordRequest writes one gateway call record. Inserts are asynchronous so
// request latency never waits on the analytics store.
func (a *ClickHouseAnalytics) RecordRequest(ctx context.Context, rec *repository.UpstreamRequestRecord) error {
	query := `
		INSERT INTO upstream_requests (
			path, status, cache_hit, duration_ms, requested_at
		) VALUES (
			?, ?, ?, ?, ?
		)
	`

	hit := uint8(0)
	if rec.CacheHit {
		hit = 1
	}
	return a.conn.AsyncInsert(ctx, query, false,
		rec.Path,
		uint16(rec.Status),
		hit,
		rec.DurationMS,
		rec.RequestedAt,
	)
}

// Close closes the ClickHouse connection.
func (a *ClickHouseAnalytics) Close() error {
	return a.conn.Close()
}
