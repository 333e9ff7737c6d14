package service

import (
	"sort"

	"decktracker/internal/domain/model"
)

// CountDecks counts canonical deck usage over a battle subset. The returned
// entries are in first-occurrence order; battles without team data are
// skipped.
func CountDecks(battles []model.RawBattle) []model.DeckFrequency {
	counts := make(map[string]int)
	decks := make(map[string]model.CanonicalDeck)
	order := make([]string, 0)

	for _, b := range battles {
		if !b.HasTeam() {
			continue
		}
		deck := Canon(b.Team[0].Cards)
		key := deck.Key()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			decks[key] = deck
		}
		counts[key]++
	}

	entries := make([]model.DeckFrequency, len(order))
	for i, key := range order {
		entries[i] = model.DeckFrequency{Deck: decks[key], Count: counts[key]}
	}
	return entries
}

// TopDecks ranks deck frequencies descending by count and returns the top n
// with confidence scores. Ties keep first-occurrence order: the ranking is
// deterministic over a given battle log. Confidence for each deck is its
// share of all counted battles (not just the top n), so the full distribution
// sums to 1.0 within rounding. An empty input yields an empty slice, never a
// zero-confidence deck.
func TopDecks(battles []model.RawBattle, n int) []model.RankedDeck {
	entries := CountDecks(battles)
	if len(entries) == 0 {
		return []model.RankedDeck{}
	}

	total := 0
	for _, e := range entries {
		total += e.Count
	}
	if total == 0 {
		total = 1
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	if len(entries) > n {
		entries = entries[:n]
	}

	ranked := make([]model.RankedDeck, len(entries))
	for i, e := range entries {
		ranked[i] = model.RankedDeck{
			Deck:       e.Deck,
			Confidence: round2(float64(e.Count) / float64(total)),
		}
	}
	return ranked
}
