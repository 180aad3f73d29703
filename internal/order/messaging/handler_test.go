package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
	"github.com/allisson/food-ordering-saga/internal/order/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) CreateOrder(ctx context.Context, input usecase.CreateOrderInput) (*domain.Order, error) {
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

func (m *MockOrderUseCase) HandleApprovalResponse(ctx context.Context, response saga.RestaurantApprovalResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func TestHandler_HandleMessage(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("dispatches payment response", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		response := saga.PaymentResponse{
			SagaID:        uuid.Must(uuid.NewV7()),
			OrderID:       uuid.Must(uuid.NewV7()),
			PaymentStatus: saga.PaymentStatusCompleted,
		}
		payload, err := json.Marshal(response)
		require.NoError(t, err)

		orderUseCase.On("HandlePaymentResponse", ctx, response).Return(nil)

		err = handler.HandleMessage(ctx, saga.TopicPaymentResponse, []byte(response.SagaID.String()), payload)
		assert.NoError(t, err)
		orderUseCase.AssertExpectations(t)
	})

	t.Run("dispatches approval response", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		response := saga.RestaurantApprovalResponse{
			SagaID:              uuid.Must(uuid.NewV7()),
			OrderID:             uuid.Must(uuid.NewV7()),
			OrderApprovalStatus: saga.OrderApprovalStatusApproved,
		}
		payload, err := json.Marshal(response)
		require.NoError(t, err)

		orderUseCase.On("HandleApprovalResponse", ctx, response).Return(nil)

		err = handler.HandleMessage(ctx, saga.TopicApprovalResponse, []byte(response.SagaID.String()), payload)
		assert.NoError(t, err)
		orderUseCase.AssertExpectations(t)
	})

	t.Run("retryable error propagates", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		response := saga.PaymentResponse{SagaID: uuid.Must(uuid.NewV7())}
		payload, err := json.Marshal(response)
		require.NoError(t, err)

		orderUseCase.On("HandlePaymentResponse", ctx, response).Return(apperrors.ErrConcurrentModification)

		err = handler.HandleMessage(ctx, saga.TopicPaymentResponse, []byte(response.SagaID.String()), payload)
		assert.ErrorIs(t, err, apperrors.ErrConcurrentModification)
	})

	t.Run("illegal transition is dropped", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		response := saga.PaymentResponse{SagaID: uuid.Must(uuid.NewV7())}
		payload, err := json.Marshal(response)
		require.NoError(t, err)

		orderUseCase.On("HandlePaymentResponse", ctx, response).Return(apperrors.ErrIllegalState)

		err = handler.HandleMessage(ctx, saga.TopicPaymentResponse, []byte(response.SagaID.String()), payload)
		assert.NoError(t, err)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		err := handler.HandleMessage(ctx, saga.TopicPaymentResponse, nil, []byte("{not json"))
		assert.NoError(t, err)
		orderUseCase.AssertNotCalled(t, "HandlePaymentResponse")
	})

	t.Run("unexpected topic is ignored", func(t *testing.T) {
		orderUseCase := new(MockOrderUseCase)
		handler := NewHandler(orderUseCase, logger)

		err := handler.HandleMessage(ctx, "unknown-topic", nil, []byte("{}"))
		assert.NoError(t, err)
	})
}
