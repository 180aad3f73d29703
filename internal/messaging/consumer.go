package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// Handler processes one inbound message. Returning nil commits the offset;
// returning an error leaves the offset uncommitted so the message is
// redelivered. Handlers are expected to be idempotent (the inbox dedup makes
// redelivery a no-op).
type Handler interface {
	HandleMessage(ctx context.Context, topic string, key, payload []byte) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, topic string, key, payload []byte) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx context.Context, topic string, key, payload []byte) error {
	return f(ctx, topic, key, payload)
}

// ConsumerConfig holds Kafka consumer group configuration.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// KafkaConsumer consumes saga messages from a consumer group with manual
// offset commits. Offsets are committed only after the handler succeeds.
type KafkaConsumer struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler *groupHandler
	logger  *slog.Logger
}

// NewKafkaConsumer creates a new KafkaConsumer.
func NewKafkaConsumer(cfg ConsumerConfig, handler Handler, logger *slog.Logger) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = false
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	config.Consumer.Group.Session.Timeout = 30 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 3 * time.Second

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	return &KafkaConsumer{
		group:  group,
		topics: cfg.Topics,
		handler: &groupHandler{
			handler: handler,
			logger:  logger,
		},
		logger: logger,
	}, nil
}

// Start runs the consume loop until the context is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			if c.logger != nil {
				c.logger.Error("consumer group error", slog.Any("error", err))
			}
		}
	}()

	if c.logger != nil {
		c.logger.Info("starting kafka consumer", slog.Any("topics", c.topics))
	}

	for {
		if err := c.group.Consume(ctx, c.topics, c.handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.logger != nil {
				c.logger.Error("consume loop error", slog.Any("error", err))
			}
			time.Sleep(time.Second)
			continue
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close closes the underlying consumer group.
func (c *KafkaConsumer) Close() error {
	return c.group.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler.
type groupHandler struct {
	handler Handler
	logger  *slog.Logger
}

func (h *groupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes messages one at a time, committing only after the
// handler succeeds. An uncommitted message is redelivered on the next session.
func (h *groupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for message := range claim.Messages() {
		if err := h.handler.HandleMessage(session.Context(), message.Topic, message.Key, message.Value); err != nil {
			if h.logger != nil {
				h.logger.Error("failed to handle message",
					slog.String("topic", message.Topic),
					slog.Int("partition", int(message.Partition)),
					slog.Int64("offset", message.Offset),
					slog.Any("error", err),
				)
			}
			// Offset stays uncommitted: the message will be read again.
			return err
		}

		session.MarkMessage(message, "")
		session.Commit()
	}

	return nil
}
