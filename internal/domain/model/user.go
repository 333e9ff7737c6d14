package model

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an account that can track clans. The linked player and clan tags
// are optional profile fields.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	PlayerTag    string    `bun:"player_tag,nullzero"`
	ClanTag      string    `bun:"clan_tag,nullzero"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
