package model

// ResolvedPlayer is the result of a fuzzy player resolution. Confidence is
// the scorer value of the accepted match on a 0-100 scale.
type ResolvedPlayer struct {
	PlayerTag  string `json:"player_tag"`
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

// RankedDeck is one deck of a top-N prediction. Confidence is the deck's
// share of all counted battles, rounded to two decimals.
type RankedDeck struct {
	Deck       []string `json:"deck"`
	Confidence float64  `json:"confidence"`
}

// DeckPrediction is the top-3 most used decks for a player in one game mode.
// An empty Top3 means no usable battles were found for that mode.
type DeckPrediction struct {
	PlayerTag string       `json:"player_tag"`
	GameMode  string       `json:"game_mode"`
	Top3      []RankedDeck `json:"top3"`
	Cached    bool         `json:"cached"`
}

// RecentBattle is one of a player's latest battles, normalized for display.
type RecentBattle struct {
	Type             string   `json:"type"`
	BattleTime       string   `json:"battle_time"`
	Result           string   `json:"result"`
	Crowns           int      `json:"crowns"`
	OpponentCrowns   int      `json:"opponent_crowns"`
	Deck             []string `json:"deck"`
	Arena            string   `json:"arena,omitempty"`
	PlayerTrophies   int      `json:"player_trophies"`
	OpponentName     string   `json:"opponent_name,omitempty"`
	OpponentTrophies int      `json:"opponent_trophies"`
}

// PlayerStats is a player's full profile with derived battle statistics.
type PlayerStats struct {
	PlayerTag     string         `json:"player_tag"`
	Name          string         `json:"name"`
	Trophies      int            `json:"trophies"`
	BestTrophies  int            `json:"best_trophies"`
	Level         int            `json:"level"`
	Arena         string         `json:"arena"`
	Clan          string         `json:"clan,omitempty"`
	ClanTag       string         `json:"clan_tag,omitempty"`
	TotalBattles  int            `json:"total_battles"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	WinRate       float64        `json:"win_rate"`
	RecentBattles []RecentBattle `json:"recent_battles"`
	TopDecks      []RankedDeck   `json:"top_decks"`
}

// MemberStats is one clan member's live statistics over a time period.
type MemberStats struct {
	Name              string    `json:"name"`
	Tag               string    `json:"tag"`
	Donations         int       `json:"donations"`
	DonationsReceived int       `json:"donations_received"`
	WarAttacks        int       `json:"war_attacks"`
	TotalWarAttacks   int       `json:"total_war_attacks"`
	Medals            int       `json:"medals"`
	Battles           int       `json:"battles"`
	Wins              int       `json:"wins"`
	Losses            int       `json:"losses"`
	Ranked            ModeStats `json:"ranked"`
	Ladder            ModeStats `json:"ladder"`
	LastSeen          string    `json:"last_seen,omitempty"`
}

// ClanStats is a clan's live member statistics for one time period.
type ClanStats struct {
	ClanName      string        `json:"clan_name"`
	ClanTag       string        `json:"clan_tag"`
	Members       []MemberStats `json:"members"`
	TimePeriod    string        `json:"time_period"`
	IsTracked     bool          `json:"is_tracked"`
	TrackingSince string        `json:"tracking_since,omitempty"`
}

// ClanHistory is the snapshot-delta view of a clan over one time period.
type ClanHistory struct {
	ClanTag    string        `json:"clan_tag"`
	TimePeriod string        `json:"time_period"`
	Members    []MemberDelta `json:"members"`
}
