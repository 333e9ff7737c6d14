package utils

import (
	"fmt"
	"time"

	"decktracker/internal/domain/model"
)

// BattleGenerator provides methods to generate test battle log data
type BattleGenerator struct{}

// NewBattleGenerator creates a new battle generator
func NewBattleGenerator() *BattleGenerator {
	return &BattleGenerator{}
}

var sampleDecks = [][]string{
	{"Knight", "Archers", "Fireball", "Musketeer", "Giant", "Minions", "Zap", "Cannon"},
	{"Hog Rider", "Ice Golem", "Musketeer", "Cannon", "Fireball", "Skeletons", "Ice Spirit", "The Log"},
	{"Golem", "Night Witch", "Baby Dragon", "Mega Minion", "Lightning", "Tornado", "Lumberjack", "Elixir Collector"},
	{"X-Bow", "Tesla", "Archers", "Knight", "Fireball", "The Log", "Skeletons", "Ice Spirit"},
}

// GenerateBattles creates count battle records cycling through battle types
// and sample decks. Crowns alternate so the log contains wins, losses, and
// draws.
func (g *BattleGenerator) GenerateBattles(count int, battleType string) []model.RawBattle {
	battles := make([]model.RawBattle, count)
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		deck := sampleDecks[i%len(sampleDecks)]
		cards := make([]model.Card, len(deck))
		for j, name := range deck {
			cards[j] = model.Card{Name: name}
		}

		battles[i] = model.RawBattle{
			Type:       battleType,
			BattleTime: now.Add(-time.Duration(i) * time.Hour).Format("20060102T150405.000Z"),
			Team: []model.BattleSide{{
				Name:             fmt.Sprintf("player%d", i%10),
				Crowns:           i % 4,
				Cards:            cards,
				StartingTrophies: 5000 + i*10,
			}},
			Opponent: []model.BattleSide{{
				Name:             fmt.Sprintf("opponent%d", i%10),
				Crowns:           (i + 1) % 4,
				Cards:            cards,
				StartingTrophies: 5000 + i*10,
			}},
		}
	}

	return battles
}
