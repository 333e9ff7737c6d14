package model

// Upstream battle type tags. The upstream API reports Trophy Road battles as
// "trail" and Path of Legend battles as "pathOfLegend"; the public game-mode
// names ("ladder", "ranked") are mapped onto these tags in one place.
const (
	BattleTypeRanked     = "pathOfLegend"
	BattleTypeLadder     = "trail"
	BattleTypeChallenge  = "challenge"
	BattleTypeTournament = "tournament"
)

// Card is one card slot of a battle deck as reported by the upstream API.
type Card struct {
	Name string `json:"name"`
}

// BattleSide is one side of a battle record (own team or opponent).
type BattleSide struct {
	Name             string `json:"name"`
	Crowns           int    `json:"crowns"`
	Cards            []Card `json:"cards"`
	StartingTrophies int    `json:"startingTrophies"`
}

// RawBattle is one record of an upstream battle log, kept close to the wire
// shape. Battles without a Team entry carry no usable data and are discarded
// before any derived computation.
type RawBattle struct {
	Type       string       `json:"type"`
	BattleTime string       `json:"battleTime"`
	Arena      struct {
		Name string `json:"name"`
	} `json:"arena"`
	Team     []BattleSide `json:"team"`
	Opponent []BattleSide `json:"opponent"`
}

// HasTeam reports whether the battle carries its own side's data.
func (b *RawBattle) HasTeam() bool {
	return len(b.Team) > 0
}

// CanonicalDeck is the identity key of a deck: the card names of one side,
// sorted lexicographically. Two battles played with the same cards in any
// order map to the same CanonicalDeck.
type CanonicalDeck []string

// Key returns a string form usable as a map key.
func (d CanonicalDeck) Key() string {
	out := ""
	for i, name := range d {
		if i > 0 {
			out += "|"
		}
		out += name
	}
	return out
}

// ModeStats aggregates battles filtered to a single battle type.
type ModeStats struct {
	Battles   int     `json:"battles"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	AvgCrowns float64 `json:"avg_crowns"`
}

// DeckFrequency is one ranked entry of a deck-usage count.
type DeckFrequency struct {
	Deck  CanonicalDeck
	Count int
}
