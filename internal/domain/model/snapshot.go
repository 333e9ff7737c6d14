package model

import (
	"time"

	"github.com/uptrace/bun"
)

// TrackedClan is a clan whose member stats are snapshotted daily. Tracking is
// idempotent: re-tracking an active clan returns the existing row unchanged.
// Clans are deactivated, never deleted.
type TrackedClan struct {
	bun.BaseModel `bun:"table:tracked_clans,alias:tc"`

	ClanTag         string    `bun:"clan_tag,pk"`
	ClanName        string    `bun:"clan_name,notnull"`
	TrackingStarted time.Time `bun:"tracking_started,notnull,default:current_timestamp"`
	TrackedByUserID int64     `bun:"tracked_by_user_id,nullzero"`
	IsActive        bool      `bun:"is_active,notnull,default:true"`
}

// ClanMemberSnapshot is one member's stats frozen on one UTC calendar day.
// Rows are append-only; at most one row may exist per
// (clan_tag, player_tag, snapshot_date), enforced by a unique index.
type ClanMemberSnapshot struct {
	bun.BaseModel `bun:"table:clan_member_snapshots,alias:cms"`

	ID        int64  `bun:"id,pk,autoincrement"`
	ClanTag   string `bun:"clan_tag,notnull"`
	PlayerTag string `bun:"player_tag,notnull"`
	Name      string `bun:"player_name,notnull"`

	DonationsGiven    int `bun:"donations_given,notnull,default:0"`
	DonationsReceived int `bun:"donations_received,notnull,default:0"`

	WarAttacks      int `bun:"war_attacks,notnull,default:0"`
	TotalWarAttacks int `bun:"total_war_attacks,notnull,default:0"`
	Medals          int `bun:"medals,notnull,default:0"`

	Battles int `bun:"battles,notnull,default:0"`
	Wins    int `bun:"wins,notnull,default:0"`
	Losses  int `bun:"losses,notnull,default:0"`

	SnapshotDate time.Time `bun:"snapshot_date,notnull,type:date"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// MemberDelta is the change in one member's stats between today's snapshot
// and a baseline snapshot. TotalWarAttacks is always today's absolute
// capacity: it resets per war period rather than accumulating.
type MemberDelta struct {
	Name              string `json:"name"`
	Tag               string `json:"tag"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donations_received"`
	WarAttacks        int    `json:"war_attacks"`
	TotalWarAttacks   int    `json:"total_war_attacks"`
	Medals            int    `json:"medals"`
	Battles           int    `json:"battles"`
	Wins              int    `json:"wins"`
	Losses            int    `json:"losses"`
}

// TrackResult is the outcome of a track request.
type TrackResult struct {
	Clan            *TrackedClan
	AlreadyTracked  bool
	SnapshotCreated bool
}

// PeriodDays maps a time period name to its day span. Unknown periods
// default to a week.
func PeriodDays(period string) int {
	switch period {
	case "week":
		return 7
	case "2weeks":
		return 14
	case "month":
		return 30
	case "all":
		return 9999
	default:
		return 7
	}
}

// ValidPeriod reports whether period names a supported time span.
func ValidPeriod(period string) bool {
	switch period {
	case "week", "2weeks", "month", "all":
		return true
	}
	return false
}
