package model

import (
	"encoding/json"
	"testing"
)

func TestDecodeBattleLogAcceptsBothShapes(t *testing.T) {
	bare := json.RawMessage(`[{"type":"pathOfLegend","team":[{"crowns":1}]}]`)
	battles, err := DecodeBattleLog(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(battles) != 1 || battles[0].Type != BattleTypeRanked {
		t.Errorf("bare array decoded to %+v", battles)
	}

	wrapped := json.RawMessage(`{"items":[{"type":"trail","team":[{"crowns":2}]}]}`)
	battles, err = DecodeBattleLog(wrapped)
	if err != nil {
		t.Fatalf("items wrapper: %v", err)
	}
	if len(battles) != 1 || battles[0].Type != BattleTypeLadder {
		t.Errorf("items wrapper decoded to %+v", battles)
	}

	if _, err := DecodeBattleLog(json.RawMessage(`"nonsense"`)); err == nil {
		t.Error("non-battle payload must fail to decode")
	}
}

func TestCanonicalDeckKey(t *testing.T) {
	deck := CanonicalDeck{"Archers", "Giant", "Zap"}
	if deck.Key() != "Archers|Giant|Zap" {
		t.Errorf("Key() = %q", deck.Key())
	}
	if (CanonicalDeck{}).Key() != "" {
		t.Error("empty deck must have an empty key")
	}
}

func TestPeriodDays(t *testing.T) {
	tests := map[string]int{
		"week":    7,
		"2weeks":  14,
		"month":   30,
		"all":     9999,
		"unknown": 7,
	}
	for period, want := range tests {
		if got := PeriodDays(period); got != want {
			t.Errorf("PeriodDays(%q) = %d, want %d", period, got, want)
		}
	}

	if ValidPeriod("unknown") {
		t.Error("unknown period must not validate")
	}
	for _, period := range []string{"week", "2weeks", "month", "all"} {
		if !ValidPeriod(period) {
			t.Errorf("ValidPeriod(%q) = false", period)
		}
	}
}
