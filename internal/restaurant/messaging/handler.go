// Package messaging adapts bus messages into restaurant approval calls.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	"github.com/allisson/food-ordering-saga/internal/restaurant/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// Handler dispatches approval requests to the restaurant use case.
type Handler struct {
	restaurantUseCase usecase.UseCase
	logger            *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(restaurantUseCase usecase.UseCase, logger *slog.Logger) *Handler {
	return &Handler{
		restaurantUseCase: restaurantUseCase,
		logger:            logger,
	}
}

// HandleMessage routes one inbound message by topic. Returning nil commits
// the offset. Malformed payloads and illegal transitions are logged and
// dropped so a poison message cannot block the partition.
func (h *Handler) HandleMessage(ctx context.Context, topic string, key, payload []byte) error {
	if topic != saga.TopicApprovalRequest {
		if h.logger != nil {
			h.logger.Warn("unexpected topic", slog.String("topic", topic))
		}
		return nil
	}

	var request saga.RestaurantApprovalRequest
	err := json.Unmarshal(payload, &request)
	if err == nil {
		err = h.restaurantUseCase.HandleApprovalRequest(ctx, request)
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
