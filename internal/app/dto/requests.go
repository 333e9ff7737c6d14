// Package dto defines the request and response bodies of the HTTP surface.
// Operation results that carry domain data are the model structs themselves;
// the types here wrap them with transport-level fields.
package dto

// ResolveRequest asks to resolve a player inside a clan identified by tag.
type ResolveRequest struct {
	PlayerName string `json:"player_name"`
	ClanTag    string `json:"clan_tag"`
}

// ResolveByNameRequest asks to resolve a player inside clans matching a name.
type ResolveByNameRequest struct {
	PlayerName string `json:"player_name"`
	ClanName   string `json:"clan_name"`
}

// RegisterRequest creates an account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PlayerTag string `json:"player_tag,omitempty"`
}

// LoginRequest authenticates an account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LinkRequest attaches game tags to the authenticated account.
type LinkRequest struct {
	PlayerTag string `json:"player_tag,omitempty"`
	ClanTag   string `json:"clan_tag,omitempty"`
}
