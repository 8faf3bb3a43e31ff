package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher emits audit events. Emissions are fire-and-forget from the
// caller's point of view; implementations own delivery and error reporting.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Nop discards events. Used when no audit sink is configured.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Kafka publishes events as JSON records keyed by user so per-user ordering
// survives partitioning.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects a producer and makes sure the topic exists. Topic
// creation is idempotent across restarts and instances.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		if !errors.Is(err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
	}

	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

func (k *Kafka) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.ErrorContext(ctx, "audit event marshal failed", "kind", event.Kind, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.UserID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.ErrorContext(ctx, "audit event produce failed", "kind", event.Kind, "error", err)
		}
	})
}

// Close flushes outstanding produces and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		k.client.Close()
		return fmt.Errorf("flush audit events: %w", err)
	}
	k.client.Close()
	return nil
}
