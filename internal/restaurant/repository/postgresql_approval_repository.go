// Package repository provides data persistence implementations for restaurant approval entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/restaurant/domain"
)

// PostgreSQLOrderApprovalRepository handles approval persistence for PostgreSQL
type PostgreSQLOrderApprovalRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderApprovalRepository creates a new PostgreSQLOrderApprovalRepository
func NewPostgreSQLOrderApprovalRepository(db *sql.DB) *PostgreSQLOrderApprovalRepository {
	return &PostgreSQLOrderApprovalRepository{
		db: db,
	}
}

// Create inserts a new approval record.
func (r *PostgreSQLOrderApprovalRepository) Create(ctx context.Context, approval *domain.OrderApproval) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO order_approvals (id, order_id, restaurant_id, status, failure_messages, created_at)
			  VALUES ($1, $2, $3, $4, $5, NOW())`

	_, err := querier.ExecContext(ctx, query, approval.ID, approval.OrderID, approval.RestaurantID,
		approval.Status, pq.Array(approval.FailureMessages))
	return err
}

// GetByOrderID retrieves the approval record for an order.
func (r *PostgreSQLOrderApprovalRepository) GetByOrderID(
	ctx context.Context,
	orderID uuid.UUID,
) (*domain.OrderApproval, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, restaurant_id, status, failure_messages, created_at
			  FROM order_approvals
			  WHERE order_id = $1`

	var approval domain.OrderApproval
	var failureMessages pq.StringArray
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&approval.ID, &approval.OrderID, &approval.RestaurantID, &approval.Status,
		&failureMessages, &approval.CreatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "order approval not found")
		}
		return nil, err
	}

	approval.FailureMessages = failureMessages

	return &approval, nil
}
