package service

import (
	"testing"
	"time"

	"decktracker/internal/domain/model"
)

func battle(battleType string, ownCrowns, oppCrowns int, cards ...string) model.RawBattle {
	deck := make([]model.Card, len(cards))
	for i, name := range cards {
		deck[i] = model.Card{Name: name}
	}
	return model.RawBattle{
		Type:       battleType,
		BattleTime: "20260830T120000.000Z",
		Team:       []model.BattleSide{{Crowns: ownCrowns, Cards: deck}},
		Opponent:   []model.BattleSide{{Crowns: oppCrowns}},
	}
}

func TestGameModeBattleType(t *testing.T) {
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{"ranked", model.BattleTypeRanked, false},
		{"ladder", model.BattleTypeLadder, false},
		{"all", "", false},
		{"pvp", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := GameModeBattleType(tc.mode)
		if tc.wantErr {
			if err == nil {
				t.Errorf("GameModeBattleType(%q): expected error, got %q", tc.mode, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("GameModeBattleType(%q): unexpected error: %v", tc.mode, err)
		}
		if got != tc.want {
			t.Errorf("GameModeBattleType(%q) = %q, want %q", tc.mode, got, tc.want)
		}
	}
}

func TestCanonIsOrderIndependent(t *testing.T) {
	a := Canon([]model.Card{{Name: "Zap"}, {Name: "Giant"}, {Name: "Archers"}})
	b := Canon([]model.Card{{Name: "Archers"}, {Name: "Zap"}, {Name: "Giant"}})

	if a.Key() != b.Key() {
		t.Errorf("same cards in different order produced different keys: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "Archers|Giant|Zap" {
		t.Errorf("unexpected canonical key: %q", a.Key())
	}
}

func TestFilterByType(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeLadder, 0, 1, "Knight"),
		{Type: model.BattleTypeRanked}, // no team data
	}

	ranked := FilterByType(battles, model.BattleTypeRanked)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked battle, got %d", len(ranked))
	}

	all := FilterByType(battles, "")
	if len(all) != 2 {
		t.Errorf("empty type should match all battles with team data, got %d", len(all))
	}
}

func TestFilterDeckSampleExcludesChallenges(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeLadder, 1, 0, "Knight"),
		battle(model.BattleTypeChallenge, 1, 0, "Knight"),
		battle(model.BattleTypeTournament, 1, 0, "Knight"),
		battle("boatBattle", 1, 0, "Knight"),
	}

	sample := FilterDeckSample(battles)
	if len(sample) != 2 {
		t.Fatalf("expected ranked and ladder only, got %d battles", len(sample))
	}
	for _, b := range sample {
		if b.Type != model.BattleTypeRanked && b.Type != model.BattleTypeLadder {
			t.Errorf("unexpected battle type in deck sample: %q", b.Type)
		}
	}
}

func TestFilterSince(t *testing.T) {
	cutoff := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	old := battle(model.BattleTypeRanked, 1, 0, "Knight")
	old.BattleTime = "20260820T120000.000Z"
	exact := battle(model.BattleTypeRanked, 1, 0, "Knight")
	exact.BattleTime = "20260825T000000.000Z"
	recent := battle(model.BattleTypeRanked, 1, 0, "Knight")
	recent.BattleTime = "20260829T120000.000Z"
	garbage := battle(model.BattleTypeRanked, 1, 0, "Knight")
	garbage.BattleTime = "not a timestamp"

	got := FilterSince([]model.RawBattle{old, exact, recent, garbage}, cutoff)
	if len(got) != 2 {
		t.Fatalf("expected 2 battles at or after cutoff, got %d", len(got))
	}
}

func TestWinLossSkipsDrawsAndCasualModes(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 2, 1, "Knight"),     // win
		battle(model.BattleTypeLadder, 0, 3, "Knight"),     // loss
		battle(model.BattleTypeChallenge, 1, 0, "Knight"),  // win
		battle(model.BattleTypeTournament, 0, 1, "Knight"), // loss
		battle(model.BattleTypeRanked, 1, 1, "Knight"),     // draw, counts in neither
		battle("casual2v2", 3, 0, "Knight"),                // casual, skipped
		{Type: model.BattleTypeRanked},                     // no team data, skipped
	}

	wins, losses := WinLoss(battles)
	if wins != 2 || losses != 2 {
		t.Errorf("WinLoss = (%d, %d), want (2, 2)", wins, losses)
	}
}

func TestModeStatsFor(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 3, 0, "Knight"),
		battle(model.BattleTypeRanked, 0, 2, "Knight"),
		battle(model.BattleTypeRanked, 1, 1, "Knight"),
		battle(model.BattleTypeLadder, 2, 0, "Knight"),
	}

	stats := ModeStatsFor(battles, model.BattleTypeRanked)
	if stats.Battles != 3 {
		t.Errorf("Battles = %d, want 3", stats.Battles)
	}
	if stats.Wins != 1 || stats.Losses != 1 {
		t.Errorf("Wins/Losses = %d/%d, want 1/1", stats.Wins, stats.Losses)
	}
	if stats.AvgCrowns != 1.33 {
		t.Errorf("AvgCrowns = %v, want 1.33", stats.AvgCrowns)
	}
}

func TestModeStatsForEmptySubset(t *testing.T) {
	stats := ModeStatsFor(nil, model.BattleTypeRanked)
	if stats.Battles != 0 || stats.AvgCrowns != 0.0 {
		t.Errorf("empty subset should report zero stats, got %+v", stats)
	}
}
