package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"decktracker/internal/domain/model"
)

// stubAPI is a canned StatsAPI. Responses and errors are keyed by path.
type stubAPI struct {
	responses map[string]json.RawMessage
	errs      map[string]error
	calls     []string
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		responses: make(map[string]json.RawMessage),
		errs:      make(map[string]error),
	}
}

func (a *stubAPI) Get(_ context.Context, path string, _ url.Values) (json.RawMessage, error) {
	a.calls = append(a.calls, path)
	if err, ok := a.errs[path]; ok {
		return nil, err
	}
	resp, ok := a.responses[path]
	if !ok {
		return nil, errors.New("unexpected path: " + path)
	}
	return resp, nil
}

func (a *stubAPI) callCount(path string) int {
	n := 0
	for _, p := range a.calls {
		if p == path {
			n++
		}
	}
	return n
}

func (a *stubAPI) setJSON(path string, v interface{}) {
	data, _ := json.Marshal(v)
	a.responses[path] = data
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestPlayerService(api *stubAPI, cache *memCache) *PlayerService {
	return NewPlayerService(api, cache, testLogger(), 10*time.Minute)
}

func TestResolveByClanTagThresholdBoundary(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/clans/%23CLAN/members", model.RosterPage{Items: []model.Member{
		{Tag: "#P1", Name: "alex"},
	}})

	svc := newTestPlayerService(api, newMemCache())

	svc.score = func(a, b string) int { return 69 }
	if _, err := svc.ResolveByClanTag(context.Background(), "alex", "#CLAN"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("score 69 must be rejected, got err = %v", err)
	}

	svc.score = func(a, b string) int { return 70 }
	resolved, err := svc.ResolveByClanTag(context.Background(), "alex", "#CLAN")
	if err != nil {
		t.Fatalf("score 70 must be accepted, got err = %v", err)
	}
	if resolved.PlayerTag != "#P1" || resolved.Confidence != 70 {
		t.Errorf("resolved = %+v, want #P1 at confidence 70", resolved)
	}
}

func TestResolveByClanTagPicksBestMatch(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/clans/%23CLAN/members", model.RosterPage{Items: []model.Member{
		{Tag: "#A1", Name: "Ann"},
		{Tag: "#A2", Name: "Anna"},
		{Tag: "#B1", Name: "Bertrand"},
	}})

	svc := newTestPlayerService(api, newMemCache())
	svc.score = func(query, candidate string) int {
		switch candidate {
		case "Ann":
			return 80
		case "Anna":
			return 90
		default:
			return 10
		}
	}

	resolved, err := svc.ResolveByClanTag(context.Background(), "ana", "#CLAN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.PlayerTag != "#A2" {
		t.Errorf("resolved tag = %s, want #A2 (highest score wins)", resolved.PlayerTag)
	}
}

func TestResolveByClanTagEmptyRoster(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/clans/%23CLAN/members", model.RosterPage{})

	svc := newTestPlayerService(api, newMemCache())
	if _, err := svc.ResolveByClanTag(context.Background(), "alex", "#CLAN"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("empty roster should report not found, got %v", err)
	}
}

func TestResolveByClanNameSkipsFailingCandidates(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/clans", model.ClanSearchPage{Items: []model.ClanRef{
		{Tag: "#C1", Name: "Knights"},
		{Tag: "#C2", Name: "Knights Two"},
	}})
	api.errs["/clans/%23C1/members"] = errors.New("boom")
	api.setJSON("/clans/%23C2/members", model.RosterPage{Items: []model.Member{
		{Tag: "#P9", Name: "alex"},
	}})

	svc := newTestPlayerService(api, newMemCache())
	svc.score = func(a, b string) int { return 100 }

	resolved, err := svc.ResolveByClanName(context.Background(), "alex", "Knights")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.PlayerTag != "#P9" {
		t.Errorf("resolved tag = %s, want #P9 from the second candidate", resolved.PlayerTag)
	}
}

func TestResolveByClanNameAllCandidatesFail(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/clans", model.ClanSearchPage{Items: []model.ClanRef{{Tag: "#C1", Name: "Knights"}}})
	api.errs["/clans/%23C1/members"] = errors.New("boom")

	svc := newTestPlayerService(api, newMemCache())
	if _, err := svc.ResolveByClanName(context.Background(), "alex", "Knights"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("exhausted candidates should report not found, got %v", err)
	}
}

func TestPredictDecksCachesDerivedResult(t *testing.T) {
	api := newStubAPI()
	battles := []model.RawBattle{
		battle(model.BattleTypeRanked, 1, 0, "Knight", "Zap"),
		battle(model.BattleTypeRanked, 0, 1, "Zap", "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Golem"),
	}
	api.setJSON("/players/%23P1/battlelog", battles)

	svc := newTestPlayerService(api, newMemCache())
	ctx := context.Background()

	first, err := svc.PredictDecks(ctx, "#P1", "ranked")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Cached {
		t.Error("first computation must not be marked cached")
	}
	if len(first.Top3) != 2 {
		t.Fatalf("expected 2 decks, got %d", len(first.Top3))
	}
	if first.Top3[0].Confidence != 0.67 {
		t.Errorf("top confidence = %v, want 0.67", first.Top3[0].Confidence)
	}

	second, err := svc.PredictDecks(ctx, "#P1", "ranked")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Cached {
		t.Error("second call must come from the cache")
	}
	if got := api.callCount("/players/%23P1/battlelog"); got != 1 {
		t.Errorf("battle log fetched %d times, want 1", got)
	}
}

func TestPredictDecksInvalidGameMode(t *testing.T) {
	svc := newTestPlayerService(newStubAPI(), newMemCache())
	if _, err := svc.PredictDecks(context.Background(), "#P1", "pvp"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("invalid mode should fail validation before any network call, got %v", err)
	}
}

func TestPredictDecksNoBattlesForMode(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/players/%23P1/battlelog", []model.RawBattle{
		battle(model.BattleTypeChallenge, 1, 0, "Knight"),
	})

	svc := newTestPlayerService(api, newMemCache())
	if _, err := svc.PredictDecks(context.Background(), "#P1", "ranked"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("mode without battles should report not found, got %v", err)
	}
}

func TestGetPlayerStats(t *testing.T) {
	api := newStubAPI()
	api.setJSON("/players/%23P1", model.PlayerProfile{
		Tag:      "#P1",
		Name:     "alex",
		Trophies: 6000,
		ExpLevel: 14,
	})
	api.setJSON("/players/%23P1/battlelog", []model.RawBattle{
		battle(model.BattleTypeRanked, 2, 0, "Knight"),
		battle(model.BattleTypeRanked, 1, 0, "Knight"),
		battle(model.BattleTypeLadder, 0, 1, "Golem"),
		battle(model.BattleTypeRanked, 1, 1, "Knight"), // draw, excluded from the record
	})

	svc := newTestPlayerService(api, newMemCache())
	stats, err := svc.GetPlayerStats(context.Background(), "#P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Wins != 2 || stats.Losses != 1 || stats.TotalBattles != 3 {
		t.Errorf("record = %d-%d over %d, want 2-1 over 3", stats.Wins, stats.Losses, stats.TotalBattles)
	}
	if stats.WinRate != 66.7 {
		t.Errorf("WinRate = %v, want 66.7", stats.WinRate)
	}
	if len(stats.RecentBattles) != 4 {
		t.Errorf("expected 4 recent battles, got %d", len(stats.RecentBattles))
	}
	if stats.RecentBattles[3].Result != "draw" {
		t.Errorf("draws must still appear in recent battles, got %q", stats.RecentBattles[3].Result)
	}
	if len(stats.TopDecks) != 2 {
		t.Errorf("expected 2 top decks, got %d", len(stats.TopDecks))
	}
}
