// Package repository provides data persistence implementations for payment entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/payment/domain"
)

// PostgreSQLPaymentRepository handles payment persistence for PostgreSQL
type PostgreSQLPaymentRepository struct {
	db *sql.DB
}

// NewPostgreSQLPaymentRepository creates a new PostgreSQLPaymentRepository
func NewPostgreSQLPaymentRepository(db *sql.DB) *PostgreSQLPaymentRepository {
	return &PostgreSQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment. Version starts at 1.
func (r *PostgreSQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payments (id, order_id, customer_id, price, status, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, payment.ID, payment.OrderID, payment.CustomerID,
		payment.Price, payment.Status)
	if err != nil {
		return err
	}

	payment.Version = 1

	return nil
}

// Update persists a status change using an optimistic version check.
func (r *PostgreSQLPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE payments
			  SET status = $1, version = version + 1, updated_at = NOW()
			  WHERE id = $2 AND version = $3`

	result, err := querier.ExecContext(ctx, query, payment.Status, payment.ID, payment.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.Wrap(apperrors.ErrConcurrentModification, "payment version mismatch")
	}

	payment.Version++

	return nil
}

// GetByOrderID retrieves the payment for an order. The saga ID equals the
// order ID, so compensation requests look payments up this way.
func (r *PostgreSQLPaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, customer_id, price, status, version, created_at, updated_at
			  FROM payments
			  WHERE order_id = $1`

	var payment domain.Payment
	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&payment.ID, &payment.OrderID, &payment.CustomerID, &payment.Price, &payment.Status,
		&payment.Version, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return &payment, nil
}
