package model

import "encoding/json"

// Member is one entry of a clan roster as returned by the upstream API.
type Member struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donationsReceived"`
}

// RosterPage wraps a clan member listing.
type RosterPage struct {
	Items []Member `json:"items"`
}

// ClanRef is one clan candidate from a clan search.
type ClanRef struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// ClanSearchPage wraps a clan search result.
type ClanSearchPage struct {
	Items []ClanRef `json:"items"`
}

// ClanProfile is the subset of the upstream clan endpoint this service reads.
type ClanProfile struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

// PlayerProfile is the subset of the upstream player endpoint this service reads.
type PlayerProfile struct {
	Tag          string `json:"tag"`
	Name         string `json:"name"`
	Trophies     int    `json:"trophies"`
	BestTrophies int    `json:"bestTrophies"`
	ExpLevel     int    `json:"expLevel"`
	LastSeen     string `json:"lastSeen"`
	Arena        struct {
		Name string `json:"name"`
	} `json:"arena"`
	Clan struct {
		Tag  string `json:"tag"`
		Name string `json:"name"`
	} `json:"clan"`
}

// RaceParticipant is one member's standing inside a war period.
type RaceParticipant struct {
	Tag       string `json:"tag"`
	Fame      int    `json:"fame"`
	DecksUsed int    `json:"decksUsed"`
}

// RaceStanding is one clan's entry in a war period's standings.
type RaceStanding struct {
	Clan struct {
		Tag          string            `json:"tag"`
		Participants []RaceParticipant `json:"participants"`
	} `json:"clan"`
}

// RiverRace is one completed war period from the river race log.
type RiverRace struct {
	Standings []RaceStanding `json:"standings"`
}

// RiverRaceLog wraps the river race log listing.
type RiverRaceLog struct {
	Items []RiverRace `json:"items"`
}

// DecodeBattleLog decodes an upstream battle log payload. The endpoint
// returns a bare JSON array, but some proxied responses wrap it in an items
// object, so both shapes are accepted.
func DecodeBattleLog(raw json.RawMessage) ([]RawBattle, error) {
	var battles []RawBattle
	if err := json.Unmarshal(raw, &battles); err == nil {
		return battles, nil
	}

	var page struct {
		Items []RawBattle `json:"items"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}
