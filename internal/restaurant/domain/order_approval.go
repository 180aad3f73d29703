// Package domain defines the restaurant approval aggregate and its rules.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// ApprovalStatus represents the restaurant's decision for an order.
type ApprovalStatus string

const (
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// ErrRestaurantNotFound indicates the approval request references an unknown restaurant.
var ErrRestaurantNotFound = apperrors.Wrap(apperrors.ErrNotFound, "restaurant not found")

// OrderApproval is the aggregate recording the restaurant's decision for one
// order. OrderID doubles as the saga ID.
type OrderApproval struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	RestaurantID    uuid.UUID
	Status          ApprovalStatus
	FailureMessages []string
	CreatedAt       time.Time
}

// NewOrderApproval creates an approval record for the given order.
func NewOrderApproval(orderID, restaurantID uuid.UUID) *OrderApproval {
	return &OrderApproval{
		ID:           uuid.Must(uuid.NewV7()),
		OrderID:      orderID,
		RestaurantID: restaurantID,
	}
}

// Approve marks the order as accepted by the restaurant.
func (a *OrderApproval) Approve() {
	a.Status = ApprovalStatusApproved
}

// Reject marks the order as refused, keeping the reasons in order.
func (a *OrderApproval) Reject(failureMessages []string) {
	a.Status = ApprovalStatusRejected
	a.FailureMessages = failureMessages
}

// Product is the restaurant-side catalog entry with its availability flag.
type Product struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Available bool
}

// Restaurant is the approval-side view of a restaurant.
type Restaurant struct {
	ID       uuid.UUID
	Products []Product
	Active   bool
}

// ProductByID looks up a catalog product.
func (r *Restaurant) ProductByID(id uuid.UUID) (Product, bool) {
	for _, product := range r.Products {
		if product.ID == id {
			return product, true
		}
	}
	return Product{}, false
}
