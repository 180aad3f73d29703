package dto

import (
	"time"

	"github.com/allisson/food-ordering-saga/internal/order/domain"
)

// OrderItemResponse represents one order item in API responses.
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	SubTotal  string `json:"sub_total"`
}

// CreateOrderResponse is returned after a successful order creation.
// Clients follow the saga via the tracking ID, not the internal order ID.
type CreateOrderResponse struct {
	TrackingID string `json:"tracking_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// TrackOrderResponse represents the current saga state of an order.
type TrackOrderResponse struct {
	TrackingID      string              `json:"tracking_id"`
	Status          string              `json:"status"`
	Price           string              `json:"price"`
	Items           []OrderItemResponse `json:"items"`
	FailureMessages []string            `json:"failure_messages,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// MapOrderToCreateResponse converts a domain order to the creation response.
func MapOrderToCreateResponse(order *domain.Order) CreateOrderResponse {
	return CreateOrderResponse{
		TrackingID: order.TrackingID.String(),
		Status:     string(order.Status),
		Message:    "Order created successfully",
	}
}

// MapOrderToTrackResponse converts a domain order to the tracking response.
func MapOrderToTrackResponse(order *domain.Order) TrackOrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			SubTotal:  item.SubTotal.StringFixed(2),
		})
	}

	return TrackOrderResponse{
		TrackingID:      order.TrackingID.String(),
		Status:          string(order.Status),
		Price:           order.Price.StringFixed(2),
		Items:           items,
		FailureMessages: order.FailureMessages,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}
