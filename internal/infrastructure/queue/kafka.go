package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// SnapshotJob asks the snapshot processor to create today's snapshot for one
// clan. Jobs are idempotent: the snapshot creator refuses duplicate days, so
// redelivery is harmless.
type SnapshotJob struct {
	ID          string    `json:"id"`
	ClanTag     string    `json:"clan_tag"`
	RequestedAt time.Time `json:"requested_at"`
}

// KafkaConfig holds Kafka connection configuration.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
}

// JobProducer defines the interface for enqueueing snapshot jobs.
type JobProducer interface {
	PublishJob(ctx context.Context, job *SnapshotJob) error
	Close() error
}

// JobConsumer defines the interface for consuming snapshot jobs.
type JobConsumer interface {
	Subscribe(ctx context.Context) (<-chan *SnapshotJob, error)
	Close() error
}

// KafkaProducer implements JobProducer using Kafka.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(config KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{}, // jobs for the same clan land on the same partition
		RequiredAcks: kafka.RequireAll,
	}
	return &KafkaProducer{writer: writer}
}

// PublishJob sends a snapshot job, keyed by clan tag.
func (p *KafkaProducer) PublishJob(ctx context.Context, job *SnapshotJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(job.ClanTag),
		Value: data,
		Time:  time.Now(),
	})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer implements JobConsumer using Kafka.
type KafkaConsumer struct {
	reader *kafka.Reader
	log    *slog.Logger
}

func NewKafkaConsumer(config KafkaConfig, log *slog.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.FirstOffset,
	})
	return &KafkaConsumer{reader: reader, log: log}
}

// Subscribe returns a channel of snapshot jobs. Malformed messages are
// committed and skipped so the consumer cannot get stuck on one bad payload.
func (c *KafkaConsumer) Subscribe(ctx context.Context) (<-chan *SnapshotJob, error) {
	jobCh := make(chan *SnapshotJob, 100)

	go func() {
		defer close(jobCh)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.log.Error("failed to fetch snapshot job", "err", err)
				}
				return
			}

			var job SnapshotJob
			if err := json.Unmarshal(msg.Value, &job); err != nil {
				c.log.Warn("skipping malformed snapshot job", "err", err)
				_ = c.reader.CommitMessages(ctx, msg)
				continue
			}

			select {
			case <-ctx.Done():
				return
			case jobCh <- &job:
				if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
					c.log.Warn("failed to commit snapshot job", "err", err)
				}
			}
		}
	}()

	return jobCh, nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
