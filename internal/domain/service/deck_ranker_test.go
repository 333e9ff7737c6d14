package service

import (
	"testing"

	"decktracker/internal/domain/model"
	"decktracker/pkg/utils"
)

func TestCountDecksGroupsByCanonicalDeck(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Knight", "Zap"),
		battle(model.BattleTypeRanked, 0, 1, "Zap", "Knight"), // same deck, different order
		battle(model.BattleTypeRanked, 1, 0, "Golem", "Lightning"),
	}

	entries := CountDecks(battles)
	if len(entries) != 2 {
		t.Fatalf("expected 2 distinct decks, got %d", len(entries))
	}
	if entries[0].Count != 2 {
		t.Errorf("first deck count = %d, want 2", entries[0].Count)
	}
}

func TestTopDecksRanksByCount(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Golem"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Golem"),
		battle(model.BattleTypeRanked, 1, 0, "Hog Rider"),
	}

	top := TopDecks(battles, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 decks, got %d", len(top))
	}
	if top[0].Deck[0] != "Knight" {
		t.Errorf("top deck = %v, want Knight", top[0].Deck)
	}
	if top[0].Confidence != 0.5 {
		t.Errorf("top confidence = %v, want 0.5 (3 of 6 battles)", top[0].Confidence)
	}
	if top[1].Deck[0] != "Golem" || top[1].Confidence != 0.33 {
		t.Errorf("second deck = %v (%v), want Golem (0.33)", top[1].Deck, top[1].Confidence)
	}
}

func TestTopDecksConfidenceCoversAllBattles(t *testing.T) {
	// Confidence is a share of every counted battle, not just the top n, so
	// a deck cut from the ranking still dilutes the survivors.
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Golem"),
		battle(model.BattleTypeRanked, 1, 0, "Hog Rider"),
	}

	top := TopDecks(battles, 1)
	if len(top) != 1 {
		t.Fatalf("expected 1 deck, got %d", len(top))
	}
	if top[0].Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5 (2 of 4 battles)", top[0].Confidence)
	}
}

func TestTopDecksTieKeepsFirstOccurrence(t *testing.T) {
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Golem"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Hog Rider"),
	}

	top := TopDecks(battles, 3)
	want := []string{"Golem", "Knight", "Hog Rider"}
	for i, deck := range top {
		if deck.Deck[0] != want[i] {
			t.Errorf("rank %d = %v, want %s", i, deck.Deck, want[i])
		}
	}
}

func TestTopDecksOverGeneratedLog(t *testing.T) {
	// The generator cycles four sample decks, so a log of 40 battles splits
	// evenly at 10 uses each.
	battles := utils.NewBattleGenerator().GenerateBattles(40, model.BattleTypeRanked)

	top := TopDecks(battles, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 decks, got %d", len(top))
	}
	for i, deck := range top {
		if deck.Confidence != 0.25 {
			t.Errorf("rank %d confidence = %v, want 0.25", i, deck.Confidence)
		}
		if len(deck.Deck) != 8 {
			t.Errorf("rank %d has %d cards, want 8", i, len(deck.Deck))
		}
	}
}

func TestTopDecksEmptyInput(t *testing.T) {
	top := TopDecks(nil, 3)
	if top == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(top) != 0 {
		t.Errorf("expected no decks, got %d", len(top))
	}
}
