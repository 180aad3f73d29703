package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
)

// PostgreSQLCustomerRepository reads the customer view used during order creation.
type PostgreSQLCustomerRepository struct {
	db *sql.DB
}

// NewPostgreSQLCustomerRepository creates a new PostgreSQLCustomerRepository
func NewPostgreSQLCustomerRepository(db *sql.DB) *PostgreSQLCustomerRepository {
	return &PostgreSQLCustomerRepository{
		db: db,
	}
}

// GetByID retrieves a customer by ID.
func (r *PostgreSQLCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id FROM customers WHERE id = $1`

	var customer domain.Customer
	err := querier.QueryRowContext(ctx, query, id).Scan(&customer.ID)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	return &customer, nil
}
