// Package domain defines the payment aggregate and the customer credit model.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
)

// PaymentStatus represents the outcome of a payment.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Domain-specific errors for payment operations.
var (
	// ErrPaymentNotFound indicates the requested payment does not exist.
	ErrPaymentNotFound = apperrors.Wrap(apperrors.ErrNotFound, "payment not found")

	// ErrCreditEntryNotFound indicates the customer has no credit entry.
	ErrCreditEntryNotFound = apperrors.Wrap(apperrors.ErrNotFound, "credit entry not found")
)

// Payment is the aggregate recording one payment attempt for an order.
// OrderID doubles as the saga ID.
type Payment struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Price      decimal.Decimal
	Status     PaymentStatus
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewPayment creates a payment for the given order, not yet validated.
func NewPayment(orderID, customerID uuid.UUID, price decimal.Decimal) *Payment {
	return &Payment{
		ID:         uuid.Must(uuid.NewV7()),
		OrderID:    orderID,
		CustomerID: customerID,
		Price:      price,
	}
}

// Validate appends a failure message when the payment price is not positive.
func (p *Payment) Validate(failureMessages *[]string) {
	if !p.Price.IsPositive() {
		*failureMessages = append(*failureMessages, "Total price must be greater than zero!")
	}
}

// Complete marks the payment as successfully reserved.
func (p *Payment) Complete() {
	p.Status = PaymentStatusCompleted
}

// Cancel marks the payment as compensated.
func (p *Payment) Cancel() {
	p.Status = PaymentStatusCancelled
}

// Fail marks the payment as rejected.
func (p *Payment) Fail() {
	p.Status = PaymentStatusFailed
}
