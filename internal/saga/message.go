// Package saga defines the message contract shared by the order, payment and
// restaurant-approval services. Every cross-service interaction is one of the
// message types below, delivered at least once over the bus and correlated by
// saga ID.
package saga

import (
	"time"

	"github.com/google/uuid"
)

// MessageType identifies a saga message on the wire.
type MessageType string

const (
	MessageTypePaymentRequest   MessageType = "payment.request"
	MessageTypePaymentResponse  MessageType = "payment.response"
	MessageTypeApprovalRequest  MessageType = "approval.request"
	MessageTypeApprovalResponse MessageType = "approval.response"
)

// Valid reports whether the message type is one of the known saga messages.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypePaymentRequest, MessageTypePaymentResponse,
		MessageTypeApprovalRequest, MessageTypeApprovalResponse:
		return true
	}
	return false
}

// PaymentOrderStatus is the order-side intent carried by a payment request.
// A cancelled status asks the payment service to compensate a completed payment.
type PaymentOrderStatus string

const (
	PaymentOrderStatusPending   PaymentOrderStatus = "PENDING"
	PaymentOrderStatusCancelled PaymentOrderStatus = "CANCELLED"
)

// PaymentStatus is the payment service's outcome for a payment request.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// RestaurantOrderStatus is the order-side status carried by an approval request.
type RestaurantOrderStatus string

const (
	RestaurantOrderStatusPaid RestaurantOrderStatus = "PAID"
)

// OrderApprovalStatus is the restaurant service's outcome for an approval request.
type OrderApprovalStatus string

const (
	OrderApprovalStatusApproved OrderApprovalStatus = "APPROVED"
	OrderApprovalStatusRejected OrderApprovalStatus = "REJECTED"
)

// PaymentRequest asks the payment service to reserve (or compensate) the
// payment for an order. Prices travel as fixed-point decimal strings.
type PaymentRequest struct {
	SagaID             uuid.UUID          `json:"saga_id"`
	OrderID            uuid.UUID          `json:"order_id"`
	CustomerID         uuid.UUID          `json:"customer_id"`
	Price              string             `json:"price"`
	CreatedAt          time.Time          `json:"created_at"`
	PaymentOrderStatus PaymentOrderStatus `json:"payment_order_status"`
}

// PaymentResponse reports the outcome of a payment request back to the order
// service. FailureMessages keeps the order of the reasons as they were found.
type PaymentResponse struct {
	SagaID          uuid.UUID     `json:"saga_id"`
	OrderID         uuid.UUID     `json:"order_id"`
	PaymentID       uuid.UUID     `json:"payment_id"`
	CustomerID      uuid.UUID     `json:"customer_id"`
	Price           string        `json:"price"`
	CreatedAt       time.Time     `json:"created_at"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	FailureMessages []string      `json:"failure_messages"`
}

// ApprovalRequestProduct is one ordered product inside an approval request.
type ApprovalRequestProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
}

// RestaurantApprovalRequest asks the restaurant service to approve a paid order.
type RestaurantApprovalRequest struct {
	SagaID                uuid.UUID                `json:"saga_id"`
	OrderID               uuid.UUID                `json:"order_id"`
	RestaurantID          uuid.UUID                `json:"restaurant_id"`
	Price                 string                   `json:"price"`
	Products              []ApprovalRequestProduct `json:"products"`
	CreatedAt             time.Time                `json:"created_at"`
	RestaurantOrderStatus RestaurantOrderStatus    `json:"restaurant_order_status"`
}

// RestaurantApprovalResponse reports the restaurant's decision back to the
// order service.
type RestaurantApprovalResponse struct {
	SagaID              uuid.UUID           `json:"saga_id"`
	OrderID             uuid.UUID           `json:"order_id"`
	RestaurantID        uuid.UUID           `json:"restaurant_id"`
	CreatedAt           time.Time           `json:"created_at"`
	OrderApprovalStatus OrderApprovalStatus `json:"order_approval_status"`
	FailureMessages     []string            `json:"failure_messages"`
}
