// Package usecase implements the outbox relay that publishes pending messages
// to the bus and the retention pass that removes finished ones.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/food-ordering-saga/internal/database"
	"github.com/allisson/food-ordering-saga/internal/metrics"
	"github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// Config holds outbox relay configuration
type Config struct {
	Interval        time.Duration
	BatchSize       int
	MaxRetries      int
	RetentionPeriod time.Duration
}

// OutboxMessageRepository defines outbox message repository operations
type OutboxMessageRepository interface {
	Create(ctx context.Context, message *domain.OutboxMessage) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	Update(ctx context.Context, message *domain.OutboxMessage) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher defines the message-publishing capability the relay depends on.
// Delivery is at-least-once; the partition key preserves per-saga ordering.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessMessages(ctx context.Context) error
	CleanupMessages(ctx context.Context) (int64, error)
}

// OutboxUseCase publishes started outbox messages and marks them terminal.
// A message is published at least once: the claim, the publish attempt and the
// status update happen inside one transaction, so a crash before commit leaves
// the row started and the next cycle retries it.
type OutboxUseCase struct {
	config     Config
	txManager  database.TxManager
	outboxRepo OutboxMessageRepository
	publisher  Publisher
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxMessageRepository,
	publisher Publisher,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *OutboxUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	return &OutboxUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		publisher:  publisher,
		metrics:    businessMetrics,
		logger:     logger,
	}
}

// Start runs the relay loop until the context is cancelled.
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox relay",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox relay")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessMessages(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process outbox messages", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessMessages claims and publishes pending messages from the outbox in a transaction
func (uc *OutboxUseCase) ProcessMessages(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		messages, err := uc.outboxRepo.ClaimPending(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("publishing outbox messages", slog.Int("count", len(messages)))
		}

		for _, message := range messages {
			if err := uc.publishMessage(ctx, message); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to publish outbox message",
						slog.String("message_id", message.ID.String()),
						slog.String("saga_id", message.SagaID.String()),
						slog.String("message_type", string(message.Type)),
						slog.Any("error", err),
					)
				}

				message.Retries++
				errorMsg := err.Error()
				message.LastError = &errorMsg

				// Bounded retries before escalating to the operator.
				if message.Retries >= uc.config.MaxRetries {
					message.Status = domain.OutboxMessageStatusFailed
					uc.metrics.RecordOperation(ctx, "outbox", "publish", "failed")

					if uc.logger != nil {
						uc.logger.Error("outbox message exhausted retries",
							slog.String("message_id", message.ID.String()),
							slog.String("saga_id", message.SagaID.String()),
							slog.Int("retries", message.Retries),
						)
					}
				}

				if err := uc.outboxRepo.Update(ctx, message); err != nil {
					return err
				}
				continue
			}

			now := time.Now()
			message.Status = domain.OutboxMessageStatusCompleted
			message.ProcessedAt = &now
			uc.metrics.RecordOperation(ctx, "outbox", "publish", "success")

			if err := uc.outboxRepo.Update(ctx, message); err != nil {
				return err
			}
		}

		return nil
	})
}

// CleanupMessages removes completed and failed messages past the retention window.
func (uc *OutboxUseCase) CleanupMessages(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-uc.config.RetentionPeriod)

	var deleted int64
	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = uc.outboxRepo.DeleteFinishedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}

	if uc.logger != nil {
		uc.logger.Info("outbox retention pass completed",
			slog.Int64("deleted", deleted),
			slog.Time("cutoff", cutoff),
		)
	}

	return deleted, nil
}

// publishMessage resolves the topic for the message type and publishes the
// payload keyed by saga ID so per-saga ordering is preserved.
func (uc *OutboxUseCase) publishMessage(ctx context.Context, message *domain.OutboxMessage) error {
	topic, err := saga.TopicFor(message.Type)
	if err != nil {
		return err
	}

	return uc.publisher.Publish(ctx, topic, message.SagaID.String(), []byte(message.Payload))
}
