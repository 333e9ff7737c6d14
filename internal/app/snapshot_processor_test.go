package app_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"decktracker/internal/app"
	"decktracker/internal/domain/model"
	"decktracker/internal/domain/repository"
	"decktracker/internal/infrastructure/queue"
)

// mockClanOps records snapshot requests; all other operations are unused by
// the pipeline.
type mockClanOps struct {
	mu        sync.Mutex
	snapshots []string
}

func (m *mockClanOps) CreateSnapshot(_ context.Context, clanTag string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, clanTag)
	return true
}

func (m *mockClanOps) taken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.snapshots...)
}

func (m *mockClanOps) TrackClan(context.Context, string, string) (*model.TrackResult, error) {
	return nil, nil
}
func (m *mockClanOps) UntrackClan(context.Context, string) error { return nil }
func (m *mockClanOps) TrackingStatus(context.Context, string) (*model.TrackedClan, error) {
	return nil, nil
}
func (m *mockClanOps) GetClanStats(context.Context, string, string) (*model.ClanStats, error) {
	return nil, nil
}
func (m *mockClanOps) GetHistoricalDelta(context.Context, string, string) (*model.ClanHistory, error) {
	return nil, nil
}

func TestSnapshotProcessor(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobCh := make(chan *queue.SnapshotJob, 10)
	clans := &mockClanOps{}
	processor := app.NewSnapshotProcessor(jobCh, clans, slog.New(slog.DiscardHandler))

	go processor.Run(ctx)

	now := time.Now().UTC()
	jobCh <- &queue.SnapshotJob{ID: "job1", ClanTag: "#CLAN1", RequestedAt: now}
	jobCh <- &queue.SnapshotJob{ID: "job2", ClanTag: "#CLAN2", RequestedAt: now}
	jobCh <- &queue.SnapshotJob{ID: "job1", ClanTag: "#CLAN1", RequestedAt: now} // duplicate, dropped
	jobCh <- nil                                                                // malformed, dropped
	jobCh <- &queue.SnapshotJob{ID: "job3", RequestedAt: now}                   // no clan tag, dropped

	time.Sleep(100 * time.Millisecond)

	taken := clans.taken()
	if len(taken) != 2 {
		t.Fatalf("expected 2 snapshots, got %d: %v", len(taken), taken)
	}
	if taken[0] != "#CLAN1" || taken[1] != "#CLAN2" {
		t.Errorf("unexpected snapshot order: %v", taken)
	}
}

func TestSnapshotProcessorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	jobCh := make(chan *queue.SnapshotJob)
	processor := app.NewSnapshotProcessor(jobCh, &mockClanOps{}, slog.New(slog.DiscardHandler))

	done := make(chan error, 1)
	go func() { done <- processor.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after cancellation")
	}
}

type mockProducer struct {
	mu   sync.Mutex
	jobs []*queue.SnapshotJob
}

func (p *mockProducer) PublishJob(_ context.Context, job *queue.SnapshotJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

func (p *mockProducer) Close() error { return nil }

func (p *mockProducer) published() []*queue.SnapshotJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*queue.SnapshotJob(nil), p.jobs...)
}

type staticClanStore struct {
	clans []*model.TrackedClan
}

func (s *staticClanStore) GetTrackedClan(context.Context, string) (*model.TrackedClan, error) {
	return nil, nil
}
func (s *staticClanStore) SaveTrackedClan(context.Context, *model.TrackedClan) error { return nil }
func (s *staticClanStore) SetClanActive(context.Context, string, bool) error         { return nil }
func (s *staticClanStore) ListActiveClans(context.Context) ([]*model.TrackedClan, error) {
	return s.clans, nil
}

var _ repository.ClanStore = (*staticClanStore)(nil)

func TestSchedulerPublishesJobPerActiveClan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &staticClanStore{clans: []*model.TrackedClan{
		{ClanTag: "#CLAN1", IsActive: true},
		{ClanTag: "#CLAN2", IsActive: true},
	}}
	producer := &mockProducer{}
	scheduler := app.NewSnapshotScheduler(store, producer, time.Hour, slog.New(slog.DiscardHandler))

	go scheduler.Run(ctx)
	time.Sleep(100 * time.Millisecond)

	jobs := producer.published()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs from the initial round, got %d", len(jobs))
	}
	tags := map[string]bool{}
	for _, job := range jobs {
		if job.ID == "" {
			t.Error("every job must carry an id")
		}
		tags[job.ClanTag] = true
	}
	if !tags["#CLAN1"] || !tags["#CLAN2"] {
		t.Errorf("unexpected job tags: %v", tags)
	}
}
