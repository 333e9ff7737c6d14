package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
	"decktracker/pkg/utils"
)

// fuzzyMatchThreshold is the minimum weighted-ratio score (0-100) for a name
// match to be accepted.
const fuzzyMatchThreshold = 70

// clanSearchLimit caps the candidate clans considered when resolving by clan
// name.
const clanSearchLimit = 10

// PlayerService implements player resolution, deck prediction, and player
// statistics on top of the upstream gateway. Derived deck analysis is cached
// separately from raw upstream responses with a longer TTL, since processed
// results are more durable than the payloads they came from.
type PlayerService struct {
	api        repository.StatsAPI
	cache      repository.ResponseCache
	log        *slog.Logger
	derivedTTL time.Duration

	// score computes string similarity on a 0-100 scale. Injected so the
	// acceptance threshold can be tested at its exact boundary.
	score func(a, b string) int
}

// NewPlayerService creates a PlayerService using the weighted-ratio scorer.
func NewPlayerService(api repository.StatsAPI, cache repository.ResponseCache, log *slog.Logger, derivedTTL time.Duration) *PlayerService {
	return &PlayerService{
		api:        api,
		cache:      cache,
		log:        log,
		derivedTTL: derivedTTL,
		score:      fuzzy.WRatio,
	}
}

// ResolveByClanTag finds a player's tag by fuzzy matching their name against
// the roster of the given clan. The best single match wins, and only if its
// score reaches the threshold.
func (s *PlayerService) ResolveByClanTag(ctx context.Context, playerName, clanTag string) (*model.ResolvedPlayer, error) {
	raw, err := s.api.Get(ctx, "/clans/"+utils.EncodeTag(clanTag)+"/members", nil)
	if err != nil {
		return nil, err
	}

	var roster model.RosterPage
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("decoding clan roster: %w", err)
	}
	if len(roster.Items) == 0 {
		return nil, fmt.Errorf("%w: no members found for that clan tag", model.ErrNotFound)
	}

	match, score := s.bestMatch(playerName, roster.Items)
	if score < fuzzyMatchThreshold {
		return nil, fmt.Errorf("%w: no close match found, best was %q (%d)", model.ErrNotFound, match.Name, score)
	}

	return &model.ResolvedPlayer{
		PlayerTag:  match.Tag,
		Name:       match.Name,
		Confidence: score,
	}, nil
}

// ResolveByClanName searches clans by name and tries to resolve the player in
// each candidate, in the order the upstream returns them. A failed roster
// fetch for one candidate is logged and skipped; the search only fails once
// every candidate has been tried.
func (s *PlayerService) ResolveByClanName(ctx context.Context, playerName, clanName string) (*model.ResolvedPlayer, error) {
	params := url.Values{}
	params.Set("name", clanName)
	params.Set("limit", strconv.Itoa(clanSearchLimit))

	raw, err := s.api.Get(ctx, "/clans", params)
	if err != nil {
		return nil, err
	}

	var search model.ClanSearchPage
	if err := json.Unmarshal(raw, &search); err != nil {
		return nil, fmt.Errorf("decoding clan search: %w", err)
	}
	if len(search.Items) == 0 {
		return nil, fmt.Errorf("%w: no clans found matching %q", model.ErrNotFound, clanName)
	}

	s.log.Debug("searching clans for player", "clan_name", clanName, "candidates", len(search.Items))

	for _, clan := range search.Items {
		resolved, err := s.ResolveByClanTag(ctx, playerName, clan.Tag)
		if err != nil {
			s.log.Warn("skipping candidate clan", "clan_tag", clan.Tag, "clan_name", clan.Name, "err", err)
			continue
		}
		s.log.Info("resolved player", "name", resolved.Name, "clan_tag", clan.Tag)
		return resolved, nil
	}

	return nil, fmt.Errorf("%w: player %q not found in any clan named %q", model.ErrNotFound, playerName, clanName)
}

// bestMatch returns the roster member with the highest similarity score.
func (s *PlayerService) bestMatch(playerName string, members []model.Member) (model.Member, int) {
	best := members[0]
	bestScore := -1
	for _, m := range members {
		if score := s.score(playerName, m.Name); score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, bestScore
}

// PredictDecks returns the player's top-3 most used decks in one game mode.
// Results are cached for the derived TTL; the cache key includes the mode.
func (s *PlayerService) PredictDecks(ctx context.Context, playerTag, gameMode string) (*model.DeckPrediction, error) {
	battleType, err := GameModeBattleType(gameMode)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("deckpred:%s:%s", playerTag, gameMode)
	if cached, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var prediction model.DeckPrediction
		if err := json.Unmarshal(cached, &prediction); err == nil {
			prediction.Cached = true
			return &prediction, nil
		}
	}

	battles, err := s.fetchBattleLog(ctx, playerTag)
	if err != nil {
		return nil, err
	}

	filtered := FilterByType(battles, battleType)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no %s battles found for this player, try another mode", model.ErrNotFound, gameMode)
	}

	top3 := TopDecks(filtered, 3)
	if len(top3) == 0 {
		return nil, fmt.Errorf("%w: no valid deck data found in %s battles for this player", model.ErrNotFound, gameMode)
	}

	prediction := &model.DeckPrediction{
		PlayerTag: playerTag,
		GameMode:  gameMode,
		Top3:      top3,
	}
	if data, err := json.Marshal(prediction); err == nil {
		if err := s.cache.SetWithTTL(ctx, cacheKey, data, s.derivedTTL); err != nil {
			s.log.Warn("failed to cache deck prediction", "player_tag", playerTag, "err", err)
		}
	}
	return prediction, nil
}

// GetPlayerStats returns a player's full profile: win/loss record, the last
// ten battles, and their top decks sampled from ranked and ladder play.
func (s *PlayerService) GetPlayerStats(ctx context.Context, playerTag string) (*model.PlayerStats, error) {
	raw, err := s.api.Get(ctx, "/players/"+utils.EncodeTag(playerTag), nil)
	if err != nil {
		return nil, err
	}
	var profile model.PlayerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decoding player profile: %w", err)
	}

	battles, err := s.fetchBattleLog(ctx, playerTag)
	if err != nil {
		return nil, err
	}

	wins, losses := WinLoss(battles)
	total := wins + losses
	winRate := 0.0
	if total > 0 {
		winRate = math.Round(float64(wins)/float64(total)*1000) / 10
	}

	stats := &model.PlayerStats{
		PlayerTag:     playerTag,
		Name:          profile.Name,
		Trophies:      profile.Trophies,
		BestTrophies:  profile.BestTrophies,
		Level:         profile.ExpLevel,
		Arena:         profile.Arena.Name,
		Clan:          profile.Clan.Name,
		ClanTag:       profile.Clan.Tag,
		TotalBattles:  total,
		Wins:          wins,
		Losses:        losses,
		WinRate:       winRate,
		RecentBattles: recentBattles(battles, 10),
		TopDecks:      TopDecks(FilterDeckSample(battles), 3),
	}
	return stats, nil
}

// fetchBattleLog retrieves and decodes a player's battle log.
func (s *PlayerService) fetchBattleLog(ctx context.Context, playerTag string) ([]model.RawBattle, error) {
	raw, err := s.api.Get(ctx, "/players/"+utils.EncodeTag(playerTag)+"/battlelog", nil)
	if err != nil {
		return nil, err
	}
	battles, err := model.DecodeBattleLog(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding battle log: %w", err)
	}
	return battles, nil
}

// recentBattles normalizes the latest n battles for display. Draws are
// reported here even though win/loss tallies exclude them.
func recentBattles(battles []model.RawBattle, n int) []model.RecentBattle {
	recent := make([]model.RecentBattle, 0, n)
	for _, b := range battles {
		if len(recent) == n {
			break
		}
		if !b.HasTeam() {
			continue
		}
		team := b.Team[0]
		var opp model.BattleSide
		if len(b.Opponent) > 0 {
			opp = b.Opponent[0]
		}

		result := "draw"
		switch {
		case team.Crowns > opp.Crowns:
			result = "win"
		case opp.Crowns > team.Crowns:
			result = "loss"
		}

		deck := make([]string, len(team.Cards))
		for i, c := range team.Cards {
			deck[i] = c.Name
		}

		recent = append(recent, model.RecentBattle{
			Type:             b.Type,
			BattleTime:       b.BattleTime,
			Result:           result,
			Crowns:           team.Crowns,
			OpponentCrowns:   opp.Crowns,
			Deck:             deck,
			Arena:            b.Arena.Name,
			PlayerTrophies:   team.StartingTrophies,
			OpponentName:     opp.Name,
			OpponentTrophies: opp.StartingTrophies,
		})
	}
	return recent
}
