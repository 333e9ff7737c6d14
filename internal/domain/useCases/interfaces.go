package useCases

import (
	"context"

	"decktracker/internal/domain/model"
)

// PlayerOperations defines the player-facing operations exposed to callers.
type PlayerOperations interface {
	ResolveByClanTag(ctx context.Context, playerName, clanTag string) (*model.ResolvedPlayer, error)
	ResolveByClanName(ctx context.Context, playerName, clanName string) (*model.ResolvedPlayer, error)
	PredictDecks(ctx context.Context, playerTag, gameMode string) (*model.DeckPrediction, error)
	GetPlayerStats(ctx context.Context, playerTag string) (*model.PlayerStats, error)
}

// ClanOperations defines the clan tracking and statistics operations.
type ClanOperations interface {
	TrackClan(ctx context.Context, clanTag string, userEmail string) (*model.TrackResult, error)
	UntrackClan(ctx context.Context, clanTag string) error
	TrackingStatus(ctx context.Context, clanTag string) (*model.TrackedClan, error)
	GetClanStats(ctx context.Context, clanTag, timePeriod string) (*model.ClanStats, error)
	// CreateSnapshot reports true when a snapshot was written. False means it
	// already existed for today or the batch failed and was rolled back; the
	// distinction is logged, not raised.
	CreateSnapshot(ctx context.Context, clanTag string) bool
	// GetHistoricalDelta returns nil without error when no snapshot exists
	// for today.
	GetHistoricalDelta(ctx context.Context, clanTag, timePeriod string) (*model.ClanHistory, error)
}

// AuthOperations defines the identity capability consumed by the HTTP layer.
type AuthOperations interface {
	Register(ctx context.Context, email, password, playerTag string) (token string, err error)
	Login(ctx context.Context, email, password string) (token string, err error)
	// Verify validates a token and returns the principal (email).
	Verify(ctx context.Context, token string) (string, error)
	LinkTags(ctx context.Context, email, playerTag, clanTag string) error
}
