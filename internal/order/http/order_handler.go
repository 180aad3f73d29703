// Package http provides HTTP handlers for order operations: creating an order
// (which starts the saga) and tracking its progress.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/food-ordering-saga/internal/httputil"
	"github.com/allisson/food-ordering-saga/internal/order/http/dto"
	"github.com/allisson/food-ordering-saga/internal/order/usecase"
)

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	orderUseCase usecase.UseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderUseCase usecase.UseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// CreateHandler creates a new order and starts its saga.
// POST /v1/orders
// Returns 201 Created with the tracking ID; the order is pending until the
// payment and approval steps finish asynchronously.
func (h *OrderHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.CreateOrder(c.Request.Context(), dto.ToCreateOrderInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapOrderToCreateResponse(order))
}

// TrackHandler returns the current saga state of an order.
// GET /v1/orders/:tracking_id
func (h *OrderHandler) TrackHandler(c *gin.Context) {
	trackingID, err := uuid.Parse(c.Param("tracking_id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.TrackOrder(c.Request.Context(), trackingID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToTrackResponse(order))
}
