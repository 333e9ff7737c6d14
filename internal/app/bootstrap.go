package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"decktracker/config"
	"decktracker/internal/domain/repository"
	"decktracker/internal/domain/service"
	redisrepo "decktracker/internal/infrastructure/cache"
	"decktracker/internal/infrastructure/queue"
	"decktracker/internal/infrastructure/storage"
	"decktracker/internal/infrastructure/upstream"
)

// Processor defines the common interface for background loops.
type Processor interface {
	Run(ctx context.Context) error
}

// AppContext holds all app dependencies
type AppContext struct {
	Config *config.Config
	Log    *slog.Logger

	Cache    *redisrepo.RedisRepository
	Postgres *storage.PostgresRepository
	Gateway  *upstream.Gateway

	Players *service.PlayerService
	Clans   *service.ClanService
	Auth    *service.AuthService

	Limiter     *service.RateLimiter
	AuthLimiter *service.RateLimiter

	Processor Processor
	Scheduler Processor

	KafkaConsumer *queue.KafkaConsumer
	KafkaProducer queue.JobProducer
	JobCh         chan *queue.SnapshotJob
}

// NewApp initializes the app context with all dependencies
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*AppContext, error) {
	app := &AppContext{Config: cfg, Log: log}

	// Cache (Redis)
	app.Cache = redisrepo.NewRedisRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	log.Info("Redis cache initialized")

	// Persistent storage (Postgres)
	pg, err := storage.NewPostgresRepository(storage.PostgresConfig{
		DSN:     cfg.PostgresDSN,
		Timeout: cfg.PostgresTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	app.Postgres = pg
	log.Info("Postgres storage initialized")

	// Optional analytics sink (ClickHouse)
	var analytics repository.RequestAnalytics
	if cfg.ClickhouseAddr != "" {
		ch, err := storage.NewClickHouseAnalytics(storage.ClickHouseConfig{
			Addr:     cfg.ClickhouseAddr,
			Username: cfg.ClickhouseUsername,
			Password: cfg.ClickhousePassword,
			Timeout:  cfg.ClickhouseTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to ClickHouse, continuing without request analytics", "err", err)
		} else {
			analytics = ch
			log.Info("ClickHouse analytics initialized")
		}
	}

	// Upstream gateway
	app.Gateway = upstream.NewGateway(upstream.Config{
		BaseURL:  cfg.UpstreamBaseURL,
		Token:    cfg.UpstreamToken,
		Timeout:  time.Duration(cfg.UpstreamTimeout) * time.Second,
		CacheTTL: time.Duration(cfg.APICacheTTL) * time.Second,
	}, app.Cache, analytics, log)

	// Domain services
	app.Players = service.NewPlayerService(app.Gateway, app.Cache, log,
		time.Duration(cfg.DerivedCacheTTL)*time.Second)
	app.Clans = service.NewClanService(app.Gateway, app.Cache, pg, pg, pg, log,
		time.Duration(cfg.ClanStatsTTL)*time.Second)
	app.Auth = service.NewAuthService(pg, cfg.JWTSecret, log)
	log.Info("Domain services initialized")

	// Rate limiters, disjoint key namespaces
	app.Limiter = service.NewRateLimiter(app.Cache, "rate_limit:",
		cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second)
	app.AuthLimiter = service.NewRateLimiter(app.Cache, "auth_limit:",
		cfg.AuthLimitRequests, time.Duration(cfg.AuthLimitWindow)*time.Second)

	// Snapshot job pipeline: Kafka when configured, direct channel otherwise
	if len(cfg.KafkaBrokers) > 0 {
		kafkaConfig := queue.KafkaConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}
		app.KafkaConsumer = queue.NewKafkaConsumer(kafkaConfig, log)
		jobCh, err := app.KafkaConsumer.Subscribe(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to Kafka: %w", err)
		}
		app.KafkaProducer = queue.NewKafkaProducer(kafkaConfig)
		app.Processor = NewSnapshotProcessor(jobCh, app.Clans, log)
		log.Info("Kafka snapshot pipeline initialized", "topic", cfg.KafkaTopic)
	} else {
		app.JobCh = make(chan *queue.SnapshotJob, cfg.JobBufferSize)
		app.KafkaProducer = channelProducer{ch: app.JobCh}
		app.Processor = NewSnapshotProcessor(app.JobCh, app.Clans, log)
		log.Info("Kafka not configured, using direct channel for snapshot jobs")
	}

	app.Scheduler = NewSnapshotScheduler(pg, app.KafkaProducer,
		time.Duration(cfg.SnapshotIntervalHours)*time.Hour, log)

	return app, nil
}

// channelProducer is the in-process fallback for the snapshot job pipeline.
type channelProducer struct {
	ch chan *queue.SnapshotJob
}

func (p channelProducer) PublishJob(ctx context.Context, job *queue.SnapshotJob) error {
	select {
	case p.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p channelProducer) Close() error { return nil }

// Cleanup performs graceful shutdown of all components
func (a *AppContext) Cleanup(ctx context.Context) {
	if a.KafkaConsumer != nil {
		a.Log.Info("Closing Kafka consumer...")
		if err := a.KafkaConsumer.Close(); err != nil {
			a.Log.Error("Error closing Kafka consumer", "err", err)
		}
	}
	if a.KafkaProducer != nil {
		a.Log.Info("Closing snapshot job producer...")
		if err := a.KafkaProducer.Close(); err != nil {
			a.Log.Error("Error closing snapshot job producer", "err", err)
		}
	}

	if a.Postgres != nil {
		if err := a.Postgres.Close(); err != nil {
			a.Log.Error("Error closing Postgres", "err", err)
		}
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Error("Error closing Redis", "err", err)
		}
	}

	a.Log.Info("All resources cleaned up")
}
