// Package service provides implementations of domain services that implement core business logic.
// This package depends only on domain models and repository interfaces (not implementations).
package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"decktracker/internal/domain/model"
)

// battleTimeLayout is the timestamp format of upstream battle records.
const battleTimeLayout = "20060102T150405.000Z"

// competitiveTypes is the mode set eligible for win/loss tallies. Casual
// modes (2v2 and friendlies) never count toward win/loss.
var competitiveTypes = map[string]bool{
	model.BattleTypeRanked:     true,
	model.BattleTypeLadder:     true,
	model.BattleTypeChallenge:  true,
	model.BattleTypeTournament: true,
}

// deckSampleTypes is the default mode set for deck-usage statistics. It is
// intentionally narrower than competitiveTypes and the two sets must stay
// independent: challenge decks are often forced drafts and would pollute the
// usage signal.
var deckSampleTypes = map[string]bool{
	model.BattleTypeRanked: true,
	model.BattleTypeLadder: true,
}

// GameModeBattleType maps a public game-mode name to its upstream battle
// type tag. The empty string selects all types.
func GameModeBattleType(gameMode string) (string, error) {
	switch gameMode {
	case "ladder":
		return model.BattleTypeLadder, nil
	case "ranked":
		return model.BattleTypeRanked, nil
	case "all":
		return "", nil
	default:
		return "", fmt.Errorf("%w: invalid game mode %q, must be one of: ladder, ranked, all", model.ErrValidation, gameMode)
	}
}

// Canon normalizes a card list to its canonical deck: the card names sorted
// lexicographically. The result is the grouping key for deck identity and is
// order-independent over the input.
func Canon(cards []model.Card) model.CanonicalDeck {
	deck := make(model.CanonicalDeck, len(cards))
	for i, c := range cards {
		deck[i] = c.Name
	}
	sort.Strings(deck)
	return deck
}

// FilterByType keeps battles whose type matches battleType (empty matches
// all). Battles without team data are always dropped.
func FilterByType(battles []model.RawBattle, battleType string) []model.RawBattle {
	filtered := make([]model.RawBattle, 0, len(battles))
	for _, b := range battles {
		if !b.HasTeam() {
			continue
		}
		if battleType != "" && b.Type != battleType {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

// FilterDeckSample keeps battles in the deck-usage sampling set.
func FilterDeckSample(battles []model.RawBattle) []model.RawBattle {
	filtered := make([]model.RawBattle, 0, len(battles))
	for _, b := range battles {
		if b.HasTeam() && deckSampleTypes[b.Type] {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

// FilterSince keeps battles fought at or after cutoff. Battles with
// unparseable timestamps are dropped.
func FilterSince(battles []model.RawBattle, cutoff time.Time) []model.RawBattle {
	filtered := make([]model.RawBattle, 0, len(battles))
	for _, b := range battles {
		t, err := ParseBattleTime(b.BattleTime)
		if err != nil {
			continue
		}
		if !t.Before(cutoff) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

// ParseBattleTime parses an upstream battle timestamp.
func ParseBattleTime(s string) (time.Time, error) {
	return time.Parse(battleTimeLayout, s)
}

// WinLoss tallies wins and losses over the competitive battle subset. Own
// crowns above opponent crowns is a win, below is a loss, equal counts in
// neither. Battles without team data or outside the competitive mode set are
// skipped entirely.
func WinLoss(battles []model.RawBattle) (wins, losses int) {
	for _, b := range battles {
		if !b.HasTeam() || !competitiveTypes[b.Type] {
			continue
		}
		oppCrowns := 0
		if len(b.Opponent) > 0 {
			oppCrowns = b.Opponent[0].Crowns
		}
		switch {
		case b.Team[0].Crowns > oppCrowns:
			wins++
		case oppCrowns > b.Team[0].Crowns:
			losses++
		}
	}
	return wins, losses
}

// ModeStatsFor aggregates battles filtered to exactly one battle type.
// AvgCrowns is the mean of own-side crowns over the subset, 0.0 when the
// subset is empty.
func ModeStatsFor(battles []model.RawBattle, battleType string) model.ModeStats {
	var stats model.ModeStats
	totalCrowns := 0

	for _, b := range battles {
		if b.Type != battleType || !b.HasTeam() {
			continue
		}
		oppCrowns := 0
		if len(b.Opponent) > 0 {
			oppCrowns = b.Opponent[0].Crowns
		}

		stats.Battles++
		totalCrowns += b.Team[0].Crowns

		switch {
		case b.Team[0].Crowns > oppCrowns:
			stats.Wins++
		case oppCrowns > b.Team[0].Crowns:
			stats.Losses++
		}
	}

	if stats.Battles > 0 {
		stats.AvgCrowns = round2(float64(totalCrowns) / float64(stats.Battles))
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
