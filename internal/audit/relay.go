package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// OutboxSource is the slice of the postgres store the relay needs.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, now time.Time) error
}

// Producer is the part of *kgo.Client the relay uses; faked in tests.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Relay ships audit_outbox rows to Kafka. Publishing is at-least-once:
// rows are marked published only after the broker acknowledges, so a crash
// between produce and mark re-sends rather than drops.
type Relay struct {
	source   OutboxSource
	producer Producer
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewRelay(source OutboxSource, producer Producer, topic string, logger *slog.Logger) *Relay {
	return &Relay{
		source:   source,
		producer: producer,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   logger,
	}
}

// EnsureTopic creates the audit topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	responses, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, response := range responses {
		if response.Err != nil && !errors.Is(response.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", response.Topic, response.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.publishBatch(ctx); err != nil {
				r.logger.Error("audit relay batch failed", "error", err)
			}
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context) error {
	rows, err := r.source.FetchUnpublished(ctx, r.batch)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(rows))
	for i, row := range rows {
		records[i] = &kgo.Record{
			Topic: r.topic,
			Key:   []byte(row.EventType),
			Value: row.Payload,
		}
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit batch: %w", err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return r.source.MarkPublished(ctx, ids, time.Now())
}
