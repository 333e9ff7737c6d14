// Package repository defines all the repository interfaces used by domain services.
// Following the dependency inversion principle, domain logic depends on these interfaces,
// and infrastructure implementations provide concrete implementations.
package repository

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"decktracker/internal/domain/model"
)

// ResponseCache defines the key-value cache with per-key expiry. It backs the
// upstream response cache, the derived statistics caches, and the rate-limit
// counters. Expiry is enforced by the store, not by callers.
type ResponseCache interface {
	// Get returns the cached value for key, with ok=false when the key is
	// absent or expired. An absent key is not an error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetWithTTL stores value under key with the given time-to-live.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Increment atomically increments the integer counter stored at key and
	// returns the new value.
	Increment(ctx context.Context, key string) (int64, error)

	// FlushAll removes every key. Administrative use only.
	FlushAll(ctx context.Context) error

	// Ping reports whether the cache store is reachable.
	Ping(ctx context.Context) error
}

// StatsAPI is the single path to external game data. The gateway
// implementation owns caching of raw responses and error translation;
// services never talk to the upstream transport directly.
type StatsAPI interface {
	// Get performs a cached GET against the upstream stats API and returns
	// the raw JSON payload.
	Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error)
}

// SnapshotStore persists daily clan member snapshots. Rows are append-only;
// the store enforces at most one row per (clan_tag, player_tag, snapshot_date).
type SnapshotStore interface {
	// HasSnapshot reports whether any snapshot exists for the clan on day.
	HasSnapshot(ctx context.Context, clanTag string, day time.Time) (bool, error)

	// SaveSnapshotBatch inserts all rows in one transaction. A failure rolls
	// the whole batch back; no partial day is ever visible.
	SaveSnapshotBatch(ctx context.Context, snapshots []*model.ClanMemberSnapshot) error

	// SnapshotsForDay returns the clan's snapshots dated exactly day.
	SnapshotsForDay(ctx context.Context, clanTag string, day time.Time) ([]*model.ClanMemberSnapshot, error)

	// SnapshotsInRange returns the clan's snapshots with from <= date < to,
	// ordered by date ascending.
	SnapshotsInRange(ctx context.Context, clanTag string, from, to time.Time) ([]*model.ClanMemberSnapshot, error)
}

// ClanStore persists clan tracking state.
type ClanStore interface {
	// GetTrackedClan returns the tracked clan row, or nil when the clan has
	// never been tracked.
	GetTrackedClan(ctx context.Context, clanTag string) (*model.TrackedClan, error)

	// SaveTrackedClan inserts a new tracked clan.
	SaveTrackedClan(ctx context.Context, clan *model.TrackedClan) error

	// SetClanActive flips the clan's is_active flag.
	SetClanActive(ctx context.Context, clanTag string, active bool) error

	// ListActiveClans returns every clan currently tracked.
	ListActiveClans(ctx context.Context) ([]*model.TrackedClan, error)
}

// UserStore persists user accounts.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SaveUser(ctx context.Context, user *model.User) error
	UpdateUserTags(ctx context.Context, email, playerTag, clanTag string) error
}

// UpstreamRequestRecord is one observed gateway call, recorded for analysis.
type UpstreamRequestRecord struct {
	Path        string
	Status      int
	CacheHit    bool
	DurationMS  int64
	RequestedAt time.Time
}

// RequestAnalytics receives gateway call records. Implementations should
// prefer cheap asynchronous writes; a lost record is acceptable, a blocked
// request is not.
type RequestAnalytics interface {
	RecordRequest(ctx context.Context, rec *UpstreamRequestRecord) error
}
