package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/payment/domain"
)

// PostgreSQLCreditEntryRepository handles credit balance persistence for PostgreSQL
type PostgreSQLCreditEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLCreditEntryRepository creates a new PostgreSQLCreditEntryRepository
func NewPostgreSQLCreditEntryRepository(db *sql.DB) *PostgreSQLCreditEntryRepository {
	return &PostgreSQLCreditEntryRepository{
		db: db,
	}
}

// GetByCustomerID retrieves the credit balance of a customer.
func (r *PostgreSQLCreditEntryRepository) GetByCustomerID(
	ctx context.Context,
	customerID uuid.UUID,
) (*domain.CreditEntry, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, total_credit_amount, version, created_at, updated_at
			  FROM credit_entries
			  WHERE customer_id = $1`

	var creditEntry domain.CreditEntry
	err := querier.QueryRowContext(ctx, query, customerID).Scan(
		&creditEntry.ID, &creditEntry.CustomerID, &creditEntry.TotalCreditAmount,
		&creditEntry.Version, &creditEntry.CreatedAt, &creditEntry.UpdatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCreditEntryNotFound
		}
		return nil, err
	}

	return &creditEntry, nil
}

// Update persists the new balance using an optimistic version check.
// Two payments debiting the same customer concurrently cannot both win.
func (r *PostgreSQLCreditEntryRepository) Update(ctx context.Context, creditEntry *domain.CreditEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE credit_entries
			  SET total_credit_amount = $1, version = version + 1, updated_at = NOW()
			  WHERE id = $2 AND version = $3`

	result, err := querier.ExecContext(ctx, query, creditEntry.TotalCreditAmount,
		creditEntry.ID, creditEntry.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.Wrap(apperrors.ErrConcurrentModification, "credit entry version mismatch")
	}

	creditEntry.Version++

	return nil
}

// PostgreSQLCreditHistoryRepository handles credit movement persistence for PostgreSQL
type PostgreSQLCreditHistoryRepository struct {
	db *sql.DB
}

// NewPostgreSQLCreditHistoryRepository creates a new PostgreSQLCreditHistoryRepository
func NewPostgreSQLCreditHistoryRepository(db *sql.DB) *PostgreSQLCreditHistoryRepository {
	return &PostgreSQLCreditHistoryRepository{
		db: db,
	}
}

// Create appends a credit movement record.
func (r *PostgreSQLCreditHistoryRepository) Create(ctx context.Context, history *domain.CreditHistory) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO credit_histories (id, customer_id, amount, transaction_type, created_at)
			  VALUES ($1, $2, $3, $4, NOW())`

	_, err := querier.ExecContext(ctx, query, history.ID, history.CustomerID, history.Amount,
		history.TransactionType)
	return err
}

// ListByCustomerID retrieves all credit movements of a customer in insertion order.
func (r *PostgreSQLCreditHistoryRepository) ListByCustomerID(
	ctx context.Context,
	customerID uuid.UUID,
) ([]*domain.CreditHistory, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, amount, transaction_type, created_at
			  FROM credit_histories
			  WHERE customer_id = $1
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var histories []*domain.CreditHistory
	for rows.Next() {
		var history domain.CreditHistory
		err := rows.Scan(&history.ID, &history.CustomerID, &history.Amount,
			&history.TransactionType, &history.CreatedAt)
		if err != nil {
			return nil, err
		}
		histories = append(histories, &history)
	}

	return histories, rows.Err()
}
