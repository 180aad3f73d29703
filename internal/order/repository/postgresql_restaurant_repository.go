package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
)

// PostgreSQLRestaurantRepository reads the restaurant catalog view used to
// confirm prices during order creation.
type PostgreSQLRestaurantRepository struct {
	db *sql.DB
}

// NewPostgreSQLRestaurantRepository creates a new PostgreSQLRestaurantRepository
func NewPostgreSQLRestaurantRepository(db *sql.DB) *PostgreSQLRestaurantRepository {
	return &PostgreSQLRestaurantRepository{
		db: db,
	}
}

// GetByID retrieves a restaurant and its catalog products.
func (r *PostgreSQLRestaurantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, active FROM restaurants WHERE id = $1`

	var restaurant domain.Restaurant
	err := querier.QueryRowContext(ctx, query, id).Scan(&restaurant.ID, &restaurant.Active)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRestaurantNotFound
		}
		return nil, err
	}

	productQuery := `SELECT id, name, price FROM restaurant_products WHERE restaurant_id = $1 ORDER BY name ASC`

	rows, err := querier.QueryContext(ctx, productQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.Name, &product.Price); err != nil {
			return nil, err
		}
		restaurant.Products = append(restaurant.Products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &restaurant, nil
}
