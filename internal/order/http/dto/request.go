// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"github.com/allisson/food-ordering-saga/internal/order/usecase"
)

// CreateOrderItemRequest is one item of an order creation request.
// Monetary values are fixed-point decimal strings like "19.90".
type CreateOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	SubTotal  string `json:"sub_total"`
}

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	CustomerID   string                   `json:"customer_id"`
	RestaurantID string                   `json:"restaurant_id"`
	Price        string                   `json:"price"`
	Items        []CreateOrderItemRequest `json:"items"`
}

// ToCreateOrderInput converts the request into the use case input.
// Field validation happens in the use case.
func ToCreateOrderInput(req CreateOrderRequest) usecase.CreateOrderInput {
	items := make([]usecase.CreateOrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, usecase.CreateOrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			SubTotal:  item.SubTotal,
		})
	}

	return usecase.CreateOrderInput{
		CustomerID:   req.CustomerID,
		RestaurantID: req.RestaurantID,
		Price:        req.Price,
		Items:        items,
	}
}
