package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
	"decktracker/pkg/utils"
)

// warRaceLimit caps war stat aggregation at the most recent periods.
const warRaceLimit = 5

// attacksPerRace is each member's attack capacity in one war period.
const attacksPerRace = 4

// ClanService implements clan tracking, live statistics, and the snapshot
// delta engine.
type ClanService struct {
	api       repository.StatsAPI
	cache     repository.ResponseCache
	snapshots repository.SnapshotStore
	clans     repository.ClanStore
	users     repository.UserStore
	log       *slog.Logger
	statsTTL  time.Duration

	// now is injected for deterministic snapshot dates in tests.
	now func() time.Time
}

func NewClanService(
	api repository.StatsAPI,
	cache repository.ResponseCache,
	snapshots repository.SnapshotStore,
	clans repository.ClanStore,
	users repository.UserStore,
	log *slog.Logger,
	statsTTL time.Duration,
) *ClanService {
	return &ClanService{
		api:       api,
		cache:     cache,
		snapshots: snapshots,
		clans:     clans,
		users:     users,
		log:       log,
		statsTTL:  statsTTL,
		now:       time.Now,
	}
}

// today returns the current UTC calendar day at midnight.
func (s *ClanService) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TrackClan starts tracking a clan. Tracking is idempotent: an already-active
// clan is returned unmodified. A previously deactivated clan is reactivated.
// An initial snapshot is attempted for newly tracked clans.
func (s *ClanService) TrackClan(ctx context.Context, clanTag, userEmail string) (*model.TrackResult, error) {
	existing, err := s.clans.GetTrackedClan(ctx, clanTag)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tracked clan: %v", model.ErrStorage, err)
	}
	if existing != nil {
		if !existing.IsActive {
			if err := s.clans.SetClanActive(ctx, clanTag, true); err != nil {
				return nil, fmt.Errorf("%w: reactivating clan: %v", model.ErrStorage, err)
			}
			existing.IsActive = true
		}
		return &model.TrackResult{Clan: existing, AlreadyTracked: true}, nil
	}

	raw, err := s.api.Get(ctx, "/clans/"+utils.EncodeTag(clanTag), nil)
	if err != nil {
		return nil, err
	}
	var profile model.ClanProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decoding clan profile: %w", err)
	}

	var userID int64
	if userEmail != "" && s.users != nil {
		if user, err := s.users.GetUserByEmail(ctx, userEmail); err == nil && user != nil {
			userID = user.ID
		}
	}

	clan := &model.TrackedClan{
		ClanTag:         clanTag,
		ClanName:        profile.Name,
		TrackingStarted: s.now().UTC(),
		TrackedByUserID: userID,
		IsActive:        true,
	}
	if err := s.clans.SaveTrackedClan(ctx, clan); err != nil {
		return nil, fmt.Errorf("%w: saving tracked clan: %v", model.ErrStorage, err)
	}

	created := s.CreateSnapshot(ctx, clanTag)
	return &model.TrackResult{Clan: clan, SnapshotCreated: created}, nil
}

// UntrackClan deactivates tracking for a clan. The row and its snapshots
// remain.
func (s *ClanService) UntrackClan(ctx context.Context, clanTag string) error {
	clan, err := s.clans.GetTrackedClan(ctx, clanTag)
	if err != nil {
		return fmt.Errorf("%w: loading tracked clan: %v", model.ErrStorage, err)
	}
	if clan == nil || !clan.IsActive {
		return fmt.Errorf("%w: clan is not being tracked", model.ErrNotFound)
	}
	if err := s.clans.SetClanActive(ctx, clanTag, false); err != nil {
		return fmt.Errorf("%w: deactivating clan: %v", model.ErrStorage, err)
	}
	return nil
}

// TrackingStatus returns the active tracking record for a clan, or nil when
// the clan is not actively tracked.
func (s *ClanService) TrackingStatus(ctx context.Context, clanTag string) (*model.TrackedClan, error) {
	clan, err := s.clans.GetTrackedClan(ctx, clanTag)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tracked clan: %v", model.ErrStorage, err)
	}
	if clan == nil || !clan.IsActive {
		return nil, nil
	}
	return clan, nil
}

// GetClanStats returns live member statistics for one time period, computed
// from upstream data and cached as a derived result. A member whose upstream
// fetches fail gets zeroed battle stats, not a dropped row.
func (s *ClanService) GetClanStats(ctx context.Context, clanTag, timePeriod string) (*model.ClanStats, error) {
	if !model.ValidPeriod(timePeriod) {
		return nil, fmt.Errorf("%w: invalid time period %q, must be one of: week, 2weeks, month, all", model.ErrValidation, timePeriod)
	}

	cacheKey := fmt.Sprintf("clan_stats:%s:%s", clanTag, timePeriod)
	if cached, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var stats model.ClanStats
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	raw, err := s.api.Get(ctx, "/clans/"+utils.EncodeTag(clanTag), nil)
	if err != nil {
		return nil, err
	}
	var profile model.ClanProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decoding clan profile: %w", err)
	}

	members, err := s.fetchRoster(ctx, clanTag)
	if err != nil {
		return nil, err
	}

	races := s.fetchRiverRaces(ctx, clanTag)
	cutoff := s.now().UTC().AddDate(0, 0, -model.PeriodDays(timePeriod))

	stats := &model.ClanStats{
		ClanName:   profile.Name,
		ClanTag:    clanTag,
		TimePeriod: timePeriod,
		Members:    make([]model.MemberStats, 0, len(members)),
	}

	for _, member := range members {
		entry := model.MemberStats{
			Name:              member.Name,
			Tag:               member.Tag,
			Donations:         member.Donations,
			DonationsReceived: member.DonationsReceived,
		}
		entry.Medals, entry.WarAttacks, entry.TotalWarAttacks = warTotals(races, clanTag, member.Tag)

		if err := s.fillBattleStats(ctx, &entry, member.Tag, cutoff); err != nil {
			// Failing members keep their roster fields and zero battle stats;
			// the batch continues.
			s.log.Warn("failed to fetch member stats", "member_tag", member.Tag, "err", err)
		}
		stats.Members = append(stats.Members, entry)
	}

	if tracked, err := s.TrackingStatus(ctx, clanTag); err == nil && tracked != nil {
		stats.IsTracked = true
		stats.TrackingSince = tracked.TrackingStarted.Format(time.RFC3339)
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, data, s.statsTTL); err != nil {
			s.log.Warn("failed to cache clan stats", "clan_tag", clanTag, "err", err)
		}
	}
	return stats, nil
}

// fillBattleStats loads one member's profile and battle log and fills the
// time-filtered battle fields of entry.
func (s *ClanService) fillBattleStats(ctx context.Context, entry *model.MemberStats, memberTag string, cutoff time.Time) error {
	raw, err := s.api.Get(ctx, "/players/"+utils.EncodeTag(memberTag), nil)
	if err != nil {
		return err
	}
	var profile model.PlayerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return fmt.Errorf("decoding player profile: %w", err)
	}
	entry.LastSeen = profile.LastSeen

	rawLog, err := s.api.Get(ctx, "/players/"+utils.EncodeTag(memberTag)+"/battlelog", nil)
	if err != nil {
		return err
	}
	battles, err := model.DecodeBattleLog(rawLog)
	if err != nil {
		return fmt.Errorf("decoding battle log: %w", err)
	}

	filtered := FilterSince(battles, cutoff)
	entry.Battles = len(filtered)
	entry.Wins, entry.Losses = WinLoss(filtered)
	entry.Ranked = ModeStatsFor(filtered, model.BattleTypeRanked)
	entry.Ladder = ModeStatsFor(filtered, model.BattleTypeLadder)
	return nil
}

// CreateSnapshot writes today's snapshot for every clan member. It is
// idempotent per UTC day: if any snapshot already exists for (clan, today) it
// is a no-op. All rows commit in one transaction; a failure rolls the whole
// batch back. Both the already-exists case and a failed commit report false,
// never an error, so a scheduler retry loop cannot crash on one bad clan.
func (s *ClanService) CreateSnapshot(ctx context.Context, clanTag string) bool {
	day := s.today()

	exists, err := s.snapshots.HasSnapshot(ctx, clanTag, day)
	if err != nil {
		s.log.Error("snapshot existence check failed", "clan_tag", clanTag, "err", err)
		return false
	}
	if exists {
		s.log.Info("snapshot already exists", "clan_tag", clanTag, "date", day.Format(time.DateOnly))
		return false
	}

	members, err := s.fetchRoster(ctx, clanTag)
	if err != nil {
		s.log.Error("snapshot roster fetch failed", "clan_tag", clanTag, "err", err)
		return false
	}

	races := s.fetchRiverRaces(ctx, clanTag)

	rows := make([]*model.ClanMemberSnapshot, 0, len(members))
	for _, member := range members {
		row := &model.ClanMemberSnapshot{
			ClanTag:           clanTag,
			PlayerTag:         member.Tag,
			Name:              member.Name,
			DonationsGiven:    member.Donations,
			DonationsReceived: member.DonationsReceived,
			SnapshotDate:      day,
			CreatedAt:         s.now().UTC(),
		}
		row.Medals, row.WarAttacks, row.TotalWarAttacks = warTotals(races, clanTag, member.Tag)

		if rawLog, err := s.api.Get(ctx, "/players/"+utils.EncodeTag(member.Tag)+"/battlelog", nil); err != nil {
			// Treat an unreachable battle log as zero battle stats for this
			// member; the snapshot still captures donations and war data.
			s.log.Warn("snapshot battle log fetch failed", "member_tag", member.Tag, "err", err)
		} else if battles, err := model.DecodeBattleLog(rawLog); err != nil {
			s.log.Warn("snapshot battle log decode failed", "member_tag", member.Tag, "err", err)
		} else {
			row.Battles = len(battles)
			row.Wins, row.Losses = WinLoss(battles)
		}

		rows = append(rows, row)
	}

	if err := s.snapshots.SaveSnapshotBatch(ctx, rows); err != nil {
		s.log.Error("snapshot batch commit failed, rolled back", "clan_tag", clanTag, "err", err)
		return false
	}

	s.log.Info("created snapshot", "clan_tag", clanTag, "members", len(rows), "date", day.Format(time.DateOnly))
	return true
}

// GetHistoricalDelta computes per-member stat deltas between today's
// snapshot and the earliest snapshot within the period. Without a snapshot
// dated today there is no data to diff and the result is nil, not an error.
// A member with no baseline reports today's values verbatim.
func (s *ClanService) GetHistoricalDelta(ctx context.Context, clanTag, timePeriod string) (*model.ClanHistory, error) {
	if !model.ValidPeriod(timePeriod) {
		return nil, fmt.Errorf("%w: invalid time period %q, must be one of: week, 2weeks, month, all", model.ErrValidation, timePeriod)
	}

	day := s.today()
	latest, err := s.snapshots.SnapshotsForDay(ctx, clanTag, day)
	if err != nil {
		return nil, fmt.Errorf("%w: loading today's snapshots: %v", model.ErrStorage, err)
	}
	if len(latest) == 0 {
		return nil, nil
	}

	start := day.AddDate(0, 0, -model.PeriodDays(timePeriod))
	old, err := s.snapshots.SnapshotsInRange(ctx, clanTag, start, day)
	if err != nil {
		return nil, fmt.Errorf("%w: loading baseline snapshots: %v", model.ErrStorage, err)
	}

	// Earliest snapshot per member wins as the baseline; the range query
	// returns rows date-ascending.
	baselines := make(map[string]*model.ClanMemberSnapshot)
	for _, snap := range old {
		if _, ok := baselines[snap.PlayerTag]; !ok {
			baselines[snap.PlayerTag] = snap
		}
	}

	history := &model.ClanHistory{
		ClanTag:    clanTag,
		TimePeriod: timePeriod,
		Members:    make([]model.MemberDelta, 0, len(latest)),
	}
	for _, today := range latest {
		delta := model.MemberDelta{
			Name:            today.Name,
			Tag:             today.PlayerTag,
			TotalWarAttacks: today.TotalWarAttacks,
		}
		if base, ok := baselines[today.PlayerTag]; ok {
			delta.Donations = today.DonationsGiven - base.DonationsGiven
			delta.DonationsReceived = today.DonationsReceived - base.DonationsReceived
			delta.WarAttacks = today.WarAttacks - base.WarAttacks
			delta.Medals = today.Medals - base.Medals
			delta.Battles = today.Battles - base.Battles
			delta.Wins = today.Wins - base.Wins
			delta.Losses = today.Losses - base.Losses
		} else {
			delta.Donations = today.DonationsGiven
			delta.DonationsReceived = today.DonationsReceived
			delta.WarAttacks = today.WarAttacks
			delta.Medals = today.Medals
			delta.Battles = today.Battles
			delta.Wins = today.Wins
			delta.Losses = today.Losses
		}
		history.Members = append(history.Members, delta)
	}
	return history, nil
}

// fetchRoster loads a clan's member list.
func (s *ClanService) fetchRoster(ctx context.Context, clanTag string) ([]model.Member, error) {
	raw, err := s.api.Get(ctx, "/clans/"+utils.EncodeTag(clanTag)+"/members", nil)
	if err != nil {
		return nil, err
	}
	var roster model.RosterPage
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("decoding clan roster: %w", err)
	}
	return roster.Items, nil
}

// fetchRiverRaces loads the river race log, degrading to no war data when
// the endpoint fails (new clans have no river race history).
func (s *ClanService) fetchRiverRaces(ctx context.Context, clanTag string) []model.RiverRace {
	raw, err := s.api.Get(ctx, "/clans/"+utils.EncodeTag(clanTag)+"/riverracelog", nil)
	if err != nil {
		s.log.Warn("river race log unavailable, continuing without war stats", "clan_tag", clanTag, "err", err)
		return nil
	}
	var log model.RiverRaceLog
	if err := json.Unmarshal(raw, &log); err != nil {
		s.log.Warn("river race log decode failed", "clan_tag", clanTag, "err", err)
		return nil
	}
	return log.Items
}

// warTotals sums one member's medals and attacks over the clan's own
// standing entry in the most recent war periods, capped at warRaceLimit.
// Capacity is attacksPerRace for each counted period.
func warTotals(races []model.RiverRace, clanTag, memberTag string) (medals, attacks, capacity int) {
	if len(races) > warRaceLimit {
		races = races[:warRaceLimit]
	}
	for _, race := range races {
		for _, standing := range race.Standings {
			if standing.Clan.Tag != clanTag {
				continue
			}
			for _, p := range standing.Clan.Participants {
				if p.Tag == memberTag {
					medals += p.Fame
					attacks += p.DecksUsed
					capacity += attacksPerRace
				}
			}
		}
	}
	return medals, attacks, capacity
}
