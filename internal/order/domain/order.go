// Package domain defines the order aggregate and its saga state machine.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// OrderStatus represents the saga status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusCancelling OrderStatus = "CANCELLING"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further saga transition can occur.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusApproved || s == OrderStatusCancelled
}

// Domain-specific errors for order operations.
var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = apperrors.Wrap(apperrors.ErrNotFound, "order not found")

	// ErrCustomerNotFound indicates the order references an unknown customer.
	ErrCustomerNotFound = apperrors.Wrap(apperrors.ErrNotFound, "customer not found")

	// ErrRestaurantNotFound indicates the order references an unknown restaurant.
	ErrRestaurantNotFound = apperrors.Wrap(apperrors.ErrNotFound, "restaurant not found")
)

// OrderItem is one ordered product with its declared price and sub-total.
type OrderItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
	SubTotal  decimal.Decimal
}

// Order is the aggregate root of the order saga. Status only moves along the
// saga transition table and Version increments once per persisted mutation.
type Order struct {
	ID              uuid.UUID
	CustomerID      uuid.UUID
	RestaurantID    uuid.UUID
	TrackingID      uuid.UUID
	Items           []OrderItem
	Price           decimal.Decimal
	Status          OrderStatus
	FailureMessages []string
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Initiate assigns identities and moves a new order into the pending status.
// It must only be called on an order that has not been persisted yet.
func (o *Order) Initiate() error {
	if o.Status != "" {
		return apperrors.Wrap(apperrors.ErrIllegalState, "order is not in correct state for initialization")
	}

	o.ID = uuid.Must(uuid.NewV7())
	o.TrackingID = uuid.Must(uuid.NewV7())
	o.Status = OrderStatusPending

	return nil
}

// Validate checks the structural invariants of the order: non-empty item
// list, positive total and sub-totals that match the declared total exactly.
// Monetary comparisons use exact decimal arithmetic.
func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "Order must contain at least one item!")
	}

	if !o.Price.IsPositive() {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "Total price must be greater than zero!")
	}

	itemsTotal := decimal.Zero
	for _, item := range o.Items {
		if err := item.validate(); err != nil {
			return err
		}
		itemsTotal = itemsTotal.Add(item.SubTotal)
	}

	if !o.Price.Equal(itemsTotal) {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("Total price: %s is not equal to Order items total: %s",
				o.Price.StringFixed(2), itemsTotal.StringFixed(2)))
	}

	return nil
}

// validate checks that the item sub-total matches price times quantity.
func (i OrderItem) validate() error {
	if i.Quantity <= 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("Order item quantity must be greater than zero for Product: %s", i.ProductID))
	}

	expected := i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
	if !i.SubTotal.Equal(expected) {
		return apperrors.Wrap(apperrors.ErrInvalidInput,
			fmt.Sprintf("Order item sub total: %s is not valid for Product: %s",
				i.SubTotal.StringFixed(2), i.ProductID))
	}

	return nil
}

// Pay moves a pending order to paid after the payment completed.
func (o *Order) Pay() error {
	if o.Status != OrderStatusPending {
		return apperrors.Wrap(apperrors.ErrIllegalState, "order is not in correct state for pay operation")
	}
	o.Status = OrderStatusPaid
	return nil
}

// Approve moves a paid order to approved. Terminal success.
func (o *Order) Approve() error {
	if o.Status != OrderStatusPaid {
		return apperrors.Wrap(apperrors.ErrIllegalState, "order is not in correct state for approve operation")
	}
	o.Status = OrderStatusApproved
	return nil
}

// InitCancel starts compensation for a paid order that the restaurant
// rejected. The payment must still be unwound before the order is cancelled.
func (o *Order) InitCancel(failureMessages []string) error {
	if o.Status != OrderStatusPaid {
		return apperrors.Wrap(apperrors.ErrIllegalState, "order is not in correct state for init cancel operation")
	}
	o.Status = OrderStatusCancelling
	o.appendFailureMessages(failureMessages)
	return nil
}

// Cancel terminates the saga. A pending order cancels directly (payment never
// completed, nothing to compensate); a cancelling order cancels once the
// payment compensation is confirmed.
func (o *Order) Cancel(failureMessages []string) error {
	if o.Status != OrderStatusPending && o.Status != OrderStatusCancelling {
		return apperrors.Wrap(apperrors.ErrIllegalState, "order is not in correct state for cancel operation")
	}
	o.Status = OrderStatusCancelled
	o.appendFailureMessages(failureMessages)
	return nil
}

// appendFailureMessages keeps the reasons in delivery order, skipping blanks.
func (o *Order) appendFailureMessages(messages []string) {
	for _, message := range messages {
		if message == "" {
			continue
		}
		o.FailureMessages = append(o.FailureMessages, message)
	}
}
