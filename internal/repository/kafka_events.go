package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"FinBoard/internal/domain/models"
	"FinBoard/internal/domain/repository"
	pkgkafka "FinBoard/pkg/kafka"
)

// KafkaEventPublisher ships dashboard events to a Kafka topic. Events are
// keyed by widget id so changes to one widget stay ordered on a partition.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev models.DashboardEvent) error {
	key := ev.WidgetID
	if key == "" {
		key = string(ev.Type)
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	if err := p.producer.Publish(ctx, p.topic, key, value); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopEventPublisher discards events when the change feed is disabled.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, models.DashboardEvent) error { return nil }
func (NopEventPublisher) Close() error                                         { return nil }
