// Package repository provides data persistence implementations for outbox entities.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/allisson/food-ordering-saga/internal/database"
	"github.com/allisson/food-ordering-saga/internal/outbox/domain"
)

// PostgreSQLOutboxMessageRepository handles outbox message persistence for PostgreSQL
type PostgreSQLOutboxMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxMessageRepository creates a new PostgreSQLOutboxMessageRepository
func NewPostgreSQLOutboxMessageRepository(db *sql.DB) *PostgreSQLOutboxMessageRepository {
	return &PostgreSQLOutboxMessageRepository{
		db: db,
	}
}

// Create inserts a new outbox message. Callers run this inside the same
// transaction as the aggregate write.
func (r *PostgreSQLOutboxMessageRepository) Create(ctx context.Context, message *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, saga_id, message_type, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, message.ID, message.SagaID, message.Type, message.Payload,
		message.Status, message.Retries, message.LastError, message.ProcessedAt)

	return err
}

// ClaimPending retrieves started messages with limit, locking the claimed rows
// so concurrent relay instances never publish the same row twice.
func (r *PostgreSQLOutboxMessageRepository) ClaimPending(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, saga_id, message_type, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM outbox_messages
			  WHERE status = $1
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxMessageStatusStarted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.OutboxMessage
	for rows.Next() {
		var message domain.OutboxMessage

		err := rows.Scan(&message.ID, &message.SagaID, &message.Type, &message.Payload, &message.Status,
			&message.Retries, &message.LastError, &message.ProcessedAt, &message.CreatedAt, &message.UpdatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, &message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// Update updates an outbox message
func (r *PostgreSQLOutboxMessageRepository) Update(ctx context.Context, message *domain.OutboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, retries = $2, last_error = $3, processed_at = $4, updated_at = NOW()
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, message.Status, message.Retries, message.LastError,
		message.ProcessedAt, message.ID)

	return err
}

// DeleteFinishedBefore removes completed and failed messages older than the
// cutoff. Started rows are never touched by retention.
func (r *PostgreSQLOutboxMessageRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_messages
			  WHERE status IN ($1, $2) AND created_at < $3`

	result, err := querier.ExecContext(ctx, query,
		domain.OutboxMessageStatusCompleted, domain.OutboxMessageStatusFailed, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
