package app

import (
	"context"
	"errors"
	"log/slog"

	"decktracker/internal/domain/useCases"
	"decktracker/internal/infrastructure/queue"
)

// ErrContextCancelled is returned when the context is cancelled during processing
var ErrContextCancelled = errors.New("context cancelled during processing")

// SnapshotProcessor consumes snapshot jobs from a channel and materializes
// them through the clan service. Jobs for a clan that already has a snapshot
// today are deduplicated by the snapshot store's uniqueness guarantee, so a
// duplicate job is cheap, not harmful.
type SnapshotProcessor struct {
	JobCh <-chan *queue.SnapshotJob
	Clans useCases.ClanOperations
	Log   *slog.Logger

	// seen dedups jobs within the process; replace with Redis for HA.
	seen map[string]struct{}
}

func NewSnapshotProcessor(jobCh <-chan *queue.SnapshotJob, clans useCases.ClanOperations, log *slog.Logger) *SnapshotProcessor {
	return &SnapshotProcessor{
		JobCh: jobCh,
		Clans: clans,
		Log:   log,
		seen:  make(map[string]struct{}),
	}
}

func (p *SnapshotProcessor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-p.JobCh:
			if !ok {
				return nil
			}
			if err := p.processJob(ctx, job); err != nil {
				if errors.Is(err, ErrContextCancelled) {
					p.Log.Info("context cancelled, stopping snapshot processor")
					return ctx.Err()
				}
				// Other errors are just logged but processing continues
				p.Log.Error("failed to process snapshot job", "err", err)
			}
		}
	}
}

// processJob handles a single snapshot job with context cancellation checks.
func (p *SnapshotProcessor) processJob(ctx context.Context, job *queue.SnapshotJob) error {
	if ctx.Err() != nil {
		return ErrContextCancelled
	}
	if job == nil || job.ClanTag == "" {
		return nil
	}

	if _, exists := p.seen[job.ID]; exists {
		return nil
	}
	p.seen[job.ID] = struct{}{}

	created := p.Clans.CreateSnapshot(ctx, job.ClanTag)
	p.Log.Info("snapshot job processed",
		"job_id", job.ID,
		"clan_tag", job.ClanTag,
		"created", created,
	)
	return nil
}
