package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"decktracker/internal/domain/repository"
	"decktracker/internal/infrastructure/queue"
)

// SnapshotScheduler publishes one snapshot job per active clan on a fixed
// interval. Duplicate publishes across restarts are safe: the store keeps
// at most one snapshot per clan per day.
type SnapshotScheduler struct {
	clans    repository.ClanStore
	producer queue.JobProducer
	interval time.Duration
	log      *slog.Logger
}

func NewSnapshotScheduler(clans repository.ClanStore, producer queue.JobProducer, interval time.Duration, log *slog.Logger) *SnapshotScheduler {
	return &SnapshotScheduler{
		clans:    clans,
		producer: producer,
		interval: interval,
		log:      log,
	}
}

// Run publishes a round of jobs immediately, then on every tick until the
// context is cancelled.
func (s *SnapshotScheduler) Run(ctx context.Context) error {
	s.publishRound(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.publishRound(ctx)
		}
	}
}

func (s *SnapshotScheduler) publishRound(ctx context.Context) {
	clans, err := s.clans.ListActiveClans(ctx)
	if err != nil {
		s.log.Error("failed to list active clans", "err", err)
		return
	}

	published := 0
	for _, clan := range clans {
		job := &queue.SnapshotJob{
			ID:          uuid.New().String(),
			ClanTag:     clan.ClanTag,
			RequestedAt: time.Now().UTC(),
		}
		if err := s.producer.PublishJob(ctx, job); err != nil {
			s.log.Error("failed to publish snapshot job", "clan_tag", clan.ClanTag, "err", err)
			continue
		}
		published++
	}
	s.log.Info("snapshot round published", "clans", len(clans), "jobs", published)
}
