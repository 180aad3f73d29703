// Package repository provides data persistence implementations for inbox entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/inbox/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// PostgreSQLInboxMessageRepository handles inbox message persistence for PostgreSQL
type PostgreSQLInboxMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLInboxMessageRepository creates a new PostgreSQLInboxMessageRepository
func NewPostgreSQLInboxMessageRepository(db *sql.DB) *PostgreSQLInboxMessageRepository {
	return &PostgreSQLInboxMessageRepository{
		db: db,
	}
}

// Create inserts a new inbox message. Returns errors.ErrConflict when the
// (saga_id, message_type, saga_status) triple was already recorded, which is
// how redelivered messages are detected. Callers run this inside the saga
// step transaction.
func (r *PostgreSQLInboxMessageRepository) Create(ctx context.Context, message *domain.InboxMessage) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_messages (id, saga_id, message_type, payload, saga_status, created_at)
			  VALUES ($1, $2, $3, $4, $5, NOW())
			  ON CONFLICT (saga_id, message_type, saga_status) DO NOTHING`

	result, err := querier.ExecContext(ctx, query, message.ID, message.SagaID, message.Type,
		message.Payload, message.SagaStatus)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.Wrap(apperrors.ErrConflict, "message already processed")
	}

	return nil
}

// GetBySagaAndType retrieves an inbox message by its idempotency key.
func (r *PostgreSQLInboxMessageRepository) GetBySagaAndType(
	ctx context.Context,
	sagaID uuid.UUID,
	messageType saga.MessageType,
) (*domain.InboxMessage, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, saga_id, message_type, payload, saga_status, created_at
			  FROM inbox_messages
			  WHERE saga_id = $1 AND message_type = $2
			  ORDER BY created_at DESC
			  LIMIT 1`

	var message domain.InboxMessage
	err := querier.QueryRowContext(ctx, query, sagaID, messageType).Scan(
		&message.ID, &message.SagaID, &message.Type, &message.Payload, &message.SagaStatus, &message.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "inbox message not found")
		}
		return nil, err
	}

	return &message, nil
}
