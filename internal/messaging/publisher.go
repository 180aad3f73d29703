// Package messaging provides Kafka publishing and consuming for saga messages.
// Delivery is at-least-once; messages are keyed by saga ID so the bus preserves
// ordering within one saga instance.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// PublisherConfig holds Kafka producer configuration.
type PublisherConfig struct {
	Brokers      []string
	MaxRetries   int
	RetryBackoff time.Duration
}

// KafkaPublisher publishes saga messages using a synchronous producer.
// RequiredAcks is WaitForAll so a successful Publish means the message is
// replicated; the outbox relay only marks a row completed after that.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(cfg PublisherConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Retry.Backoff = cfg.RetryBackoff
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
	}, nil
}

// Publish sends a message to the given topic keyed by the partition key.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send kafka message: %w", err)
	}

	if p.logger != nil {
		p.logger.Debug("message published",
			slog.String("topic", topic),
			slog.String("key", key),
			slog.Int64("offset", offset),
			slog.Int("partition", int(partition)),
		)
	}

	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
