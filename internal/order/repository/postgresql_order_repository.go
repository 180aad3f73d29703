// Package repository provides data persistence implementations for order entities.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
)

// PostgreSQLOrderRepository handles order persistence for PostgreSQL
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order with its items. Version starts at 1.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (id, customer_id, restaurant_id, tracking_id, price, status, failure_messages, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, 1, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, order.ID, order.CustomerID, order.RestaurantID,
		order.TrackingID, order.Price, order.Status, pq.Array(order.FailureMessages))
	if err != nil {
		return err
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, price, sub_total)
				  VALUES ($1, $2, $3, $4, $5)`

	for _, item := range order.Items {
		_, err := querier.ExecContext(ctx, itemQuery, order.ID, item.ProductID, item.Quantity,
			item.Price, item.SubTotal)
		if err != nil {
			return err
		}
	}

	order.Version = 1

	return nil
}

// Update persists a saga transition using an optimistic version check.
// Returns errors.ErrConcurrentModification when another handler already
// mutated the aggregate; the caller fails fast and relies on redelivery.
func (r *PostgreSQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders
			  SET status = $1, failure_messages = $2, version = version + 1, updated_at = NOW()
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, order.Status, pq.Array(order.FailureMessages),
		order.ID, order.Version)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperrors.Wrap(apperrors.ErrConcurrentModification, "order version mismatch")
	}

	order.Version++

	return nil
}

// GetByID retrieves an order with its items
func (r *PostgreSQLOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, restaurant_id, tracking_id, price, status, failure_messages, version, created_at, updated_at
			  FROM orders
			  WHERE id = $1`

	return r.scanOrder(ctx, querier, query, id)
}

// GetByTrackingID retrieves an order by its tracking identity
func (r *PostgreSQLOrderRepository) GetByTrackingID(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, customer_id, restaurant_id, tracking_id, price, status, failure_messages, version, created_at, updated_at
			  FROM orders
			  WHERE tracking_id = $1`

	return r.scanOrder(ctx, querier, query, trackingID)
}

// scanOrder scans a single order row and loads its items.
func (r *PostgreSQLOrderRepository) scanOrder(
	ctx context.Context,
	querier database.Querier,
	query string,
	arg any,
) (*domain.Order, error) {
	var order domain.Order
	var failureMessages pq.StringArray

	err := querier.QueryRowContext(ctx, query, arg).Scan(&order.ID, &order.CustomerID, &order.RestaurantID,
		&order.TrackingID, &order.Price, &order.Status, &failureMessages, &order.Version,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	order.FailureMessages = failureMessages

	items, err := r.loadItems(ctx, querier, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// loadItems loads the items of an order in insertion order.
func (r *PostgreSQLOrderRepository) loadItems(
	ctx context.Context,
	querier database.Querier,
	orderID uuid.UUID,
) ([]domain.OrderItem, error) {
	query := `SELECT product_id, quantity, price, sub_total
			  FROM order_items
			  WHERE order_id = $1
			  ORDER BY id ASC`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price, &item.SubTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
