// Package messaging adapts bus messages into order saga handler calls.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/order/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// Handler dispatches payment and approval responses to the order use case.
type Handler struct {
	orderUseCase usecase.UseCase
	logger       *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(orderUseCase usecase.UseCase, logger *slog.Logger) *Handler {
	return &Handler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// HandleMessage routes one inbound message by topic. Returning nil commits
// the offset. Malformed payloads and illegal saga transitions are not
// retryable: they are logged and dropped so a poison message cannot block the
// partition.
func (h *Handler) HandleMessage(ctx context.Context, topic string, key, payload []byte) error {
	var err error

	switch topic {
	case saga.TopicPaymentResponse:
		var response saga.PaymentResponse
		if err = json.Unmarshal(payload, &response); err == nil {
			err = h.orderUseCase.HandlePaymentResponse(ctx, response)
		}
	case saga.TopicApprovalResponse:
		var response saga.RestaurantApprovalResponse
		if err = json.Unmarshal(payload, &response); err == nil {
			err = h.orderUseCase.HandleApprovalResponse(ctx, response)
		}
	default:
		if h.logger != nil {
			h.logger.Warn("unexpected topic", slog.String("topic", topic))
		}
		return nil
	}

	if err != nil && !retryable(err) {
		if h.logger != nil {
			h.logger.Error("message dropped",
				slog.String("topic", topic),
				slog.String("key", string(key)),
				slog.Any("error", err),
			)
		}
		return nil
	}

	return err
}

// retryable reports whether redelivering the message can succeed. Illegal
// transitions and invalid payloads produce the same outcome on every attempt.
func retryable(err error) bool {
	if apperrors.Is(err, apperrors.ErrIllegalState) || apperrors.Is(err, apperrors.ErrInvalidInput) {
		return false
	}

	var jsonErr *json.SyntaxError
	if apperrors.As(err, &jsonErr) {
		return false
	}
	var typeErr *json.UnmarshalTypeError
	return !apperrors.As(err, &typeErr)
}
