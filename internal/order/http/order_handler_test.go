package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/httputil"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
	"github.com/allisson/food-ordering-saga/internal/order/http/dto"
	"github.com/allisson/food-ordering-saga/internal/order/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// MockOrderUseCase is a mock implementation of usecase.UseCase
type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) CreateOrder(
	ctx context.Context,
	input usecase.CreateOrderInput,
) (*domain.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) TrackOrder(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderUseCase) HandlePaymentResponse(ctx context.Context, response saga.PaymentResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockOrderUseCase) HandleApprovalResponse(
	ctx context.Context,
	response saga.RestaurantApprovalResponse,
) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func setupTestHandler(t *testing.T) (*OrderHandler, *MockOrderUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &MockOrderUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewOrderHandler(mockUseCase, logger), mockUseCase
}

func createTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")

	return c, w
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:           uuid.Must(uuid.NewV7()),
		CustomerID:   uuid.Must(uuid.NewV7()),
		RestaurantID: uuid.Must(uuid.NewV7()),
		TrackingID:   uuid.Must(uuid.NewV7()),
		Price:        decimal.RequireFromString("200.00"),
		Items: []domain.OrderItem{
			{
				ProductID: uuid.Must(uuid.NewV7()),
				Quantity:  4,
				Price:     decimal.RequireFromString("50.00"),
				SubTotal:  decimal.RequireFromString("200.00"),
			},
		},
		Status: domain.OrderStatusPending,
	}
}

func TestOrderHandler_CreateHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		order := testOrder()
		request := dto.CreateOrderRequest{
			CustomerID:   order.CustomerID.String(),
			RestaurantID: order.RestaurantID.String(),
			Price:        "200.00",
			Items: []dto.CreateOrderItemRequest{
				{
					ProductID: order.Items[0].ProductID.String(),
					Quantity:  4,
					Price:     "50.00",
					SubTotal:  "200.00",
				},
			},
		}

		mockUseCase.On("CreateOrder", mock.Anything, dto.ToCreateOrderInput(request)).
			Return(order, nil)

		c, w := createTestContext(http.MethodPost, "/v1/orders", request)
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.CreateOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, order.TrackingID.String(), response.TrackingID)
		assert.Equal(t, "PENDING", response.Status)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/orders", nil)
		c.Request = httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader([]byte("{not-json")))

		handler.CreateHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "CreateOrder")
	})

	t.Run("ValidationError", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		request := dto.CreateOrderRequest{
			CustomerID: "not-a-uuid",
		}

		mockUseCase.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, apperrors.Wrap(apperrors.ErrInvalidInput, "customer_id must be a valid UUID"))

		c, w := createTestContext(http.MethodPost, "/v1/orders", request)
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "invalid_input", response.Error)
	})

	t.Run("CustomerNotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		request := dto.CreateOrderRequest{
			CustomerID:   uuid.Must(uuid.NewV7()).String(),
			RestaurantID: uuid.Must(uuid.NewV7()).String(),
			Price:        "200.00",
			Items: []dto.CreateOrderItemRequest{
				{ProductID: uuid.Must(uuid.NewV7()).String(), Quantity: 1, Price: "200.00", SubTotal: "200.00"},
			},
		}

		mockUseCase.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, domain.ErrCustomerNotFound)

		c, w := createTestContext(http.MethodPost, "/v1/orders", request)
		handler.CreateHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOrderHandler_TrackHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		order := testOrder()
		order.FailureMessages = []string{"Product is not available"}

		mockUseCase.On("TrackOrder", mock.Anything, order.TrackingID).Return(order, nil)

		c, w := createTestContext(http.MethodGet, "/v1/orders/"+order.TrackingID.String(), nil)
		c.Params = gin.Params{{Key: "tracking_id", Value: order.TrackingID.String()}}

		handler.TrackHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.TrackOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, order.TrackingID.String(), response.TrackingID)
		assert.Equal(t, "PENDING", response.Status)
		assert.Equal(t, "200.00", response.Price)
		assert.Len(t, response.Items, 1)
		assert.Equal(t, []string{"Product is not available"}, response.FailureMessages)
	})

	t.Run("InvalidTrackingID", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/orders/not-a-uuid", nil)
		c.Params = gin.Params{{Key: "tracking_id", Value: "not-a-uuid"}}

		handler.TrackHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUseCase.AssertNotCalled(t, "TrackOrder")
	})

	t.Run("NotFound", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		trackingID := uuid.Must(uuid.NewV7())
		mockUseCase.On("TrackOrder", mock.Anything, trackingID).Return(nil, domain.ErrOrderNotFound)

		c, w := createTestContext(http.MethodGet, "/v1/orders/"+trackingID.String(), nil)
		c.Params = gin.Params{{Key: "tracking_id", Value: trackingID.String()}}

		handler.TrackHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
