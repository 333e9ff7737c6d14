package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
)

// PostgresRepository implements the SnapshotStore, ClanStore, and UserStore
// interfaces on a Postgres database. The snapshot invariant — at most one
// row per (clan_tag, player_tag, snapshot_date) — is enforced by a unique
// index here, not by application-level locking, so two concurrent snapshot
// attempts for the same day cannot both commit.
type PostgresRepository struct {
	db *bun.DB
}

type PostgresConfig struct {
	DSN     string
	Timeout int
}

func NewPostgresRepository(cfg PostgresConfig) (*PostgresRepository, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Timeout)*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}
	if err := createTablesIfNotExist(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Ensure PostgresRepository implements all required interfaces.
var _ repository.SnapshotStore = (*PostgresRepository)(nil)
var _ repository.ClanStore = (*PostgresRepository)(nil)
var _ repository.UserStore = (*PostgresRepository)(nil)

func createTablesIfNotExist(ctx context.Context, db *bun.DB) error {
	models := []interface{}{
		(*model.User)(nil),
		(*model.TrackedClan)(nil),
		(*model.ClanMemberSnapshot)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	// One snapshot per member per clan per day.
	_, err := db.NewCreateIndex().
		Model((*model.ClanMemberSnapshot)(nil)).
		Index("idx_snapshot_unique_day").
		Unique().
		Column("clan_tag", "player_tag", "snapshot_date").
		IfNotExists().
		Exec(ctx)
	return err
}

// SnapshotStore interface implementation

// HasSnapshot reports whether any snapshot row exists for the clan on day.
func (r *PostgresRepository) HasSnapshot(ctx context.Context, clanTag string, day time.Time) (bool, error) {
	return r.db.NewSelect().
		Model((*model.ClanMemberSnapshot)(nil)).
		Where("clan_tag = ?", clanTag).
		Where("snapshot_date = ?", day).
		Exists(ctx)
}

// SaveSnapshotBatch inserts all rows in a single transaction. Any failure,
// including a uniqueness violation from a concurrent snapshot of the same
// day, rolls back the entire batch.
func (r *PostgresRepository) SaveSnapshotBatch(ctx context.Context, snapshots []*model.ClanMemberSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&snapshots).Exec(ctx)
		return err
	})
}

// SnapshotsForDay returns the clan's snapshots dated exactly day.
func (r *PostgresRepository) SnapshotsForDay(ctx context.Context, clanTag string, day time.Time) ([]*model.ClanMemberSnapshot, error) {
	var snapshots []*model.ClanMemberSnapshot
	err := r.db.NewSelect().
		Model(&snapshots).
		Where("clan_tag = ?", clanTag).
		Where("snapshot_date = ?", day).
		Scan(ctx)
	return snapshots, err
}

// SnapshotsInRange returns snapshots with from <= snapshot_date < to,
// oldest first so callers can pick the earliest row per member.
func (r *PostgresRepository) SnapshotsInRange(ctx context.Context, clanTag string, from, to time.Time) ([]*model.ClanMemberSnapshot, error) {
	var snapshots []*model.ClanMemberSnapshot
	err := r.db.NewSelect().
		Model(&snapshots).
		Where("clan_tag = ?", clanTag).
		Where("snapshot_date >= ?", from).
		Where("snapshot_date < ?", to).
		Order("snapshot_date ASC").
		Scan(ctx)
	return snapshots, err
}

// ClanStore interface implementation

// GetTrackedClan returns the tracking row for clanTag, or nil when the clan
// has never been tracked.
func (r *PostgresRepository) GetTrackedClan(ctx context.Context, clanTag string) (*model.TrackedClan, error) {
	clan := new(model.TrackedClan)
	err := r.db.NewSelect().
		Model(clan).
		Where("clan_tag = ?", clanTag).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return clan, nil
}

func (r *PostgresRepository) SaveTrackedClan(ctx context.Context, clan *model.TrackedClan) error {
	_, err := r.db.NewInsert().Model(clan).Exec(ctx)
	return err
}

func (r *PostgresRepository) SetClanActive(ctx context.Context, clanTag string, active bool) error {
	_, err := r.db.NewUpdate().
		Model((*model.TrackedClan)(nil)).
		Set("is_active = ?", active).
		Where("clan_tag = ?", clanTag).
		Exec(ctx)
	return err
}

func (r *PostgresRepository) ListActiveClans(ctx context.Context) ([]*model.TrackedClan, error) {
	var clans []*model.TrackedClan
	err := r.db.NewSelect().
		Model(&clans).
		Where("is_active = ?", true).
		Order("tracking_started ASC").
		Scan(ctx)
	return clans, err
}

// UserStore interface implementation

// GetUserByEmail returns the user with that email, or nil when absent.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user := new(model.User)
	err := r.db.NewSelect().
		Model(user).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresRepository) SaveUser(ctx context.Context, user *model.User) error {
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	return err
}

func (r *PostgresRepository) UpdateUserTags(ctx context.Context, email, playerTag, clanTag string) error {
	_, err := r.db.NewUpdate().
		Model((*model.User)(nil)).
		Set("player_tag = ?", playerTag).
		Set("clan_tag = ?", clanTag).
		Where("email = ?", email).
		Exec(ctx)
	return err
}

// Ping reports whether Postgres is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
