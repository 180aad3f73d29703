// Package usecase implements the restaurant side of the order saga: deciding
// whether a paid order is approved or rejected and reporting the outcome back
// through the outbox.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	inboxDomain "github.com/allisson/food-ordering-saga/internal/inbox/domain"
	"github.com/allisson/food-ordering-saga/internal/metrics"
	outboxDomain "github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/restaurant/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// UseCase defines the interface for restaurant approval business logic operations
type UseCase interface {
	HandleApprovalRequest(ctx context.Context, request saga.RestaurantApprovalRequest) error
}

// OrderApprovalRepository defines approval repository operations
type OrderApprovalRepository interface {
	Create(ctx context.Context, approval *domain.OrderApproval) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.OrderApproval, error)
}

// RestaurantRepository defines restaurant catalog lookup operations
type RestaurantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Restaurant, error)
}

// OutboxMessageRepository defines the outbox operations the saga handler needs
type OutboxMessageRepository interface {
	Create(ctx context.Context, message *outboxDomain.OutboxMessage) error
}

// InboxMessageRepository defines the inbox operations the saga handler needs
type InboxMessageRepository interface {
	Create(ctx context.Context, message *inboxDomain.InboxMessage) error
}

// RestaurantUseCase handles restaurant approval business logic
type RestaurantUseCase struct {
	txManager      database.TxManager
	approvalRepo   OrderApprovalRepository
	restaurantRepo RestaurantRepository
	outboxRepo     OutboxMessageRepository
	inboxRepo      InboxMessageRepository
	metrics        metrics.BusinessMetrics
	logger         *slog.Logger
}

// NewRestaurantUseCase creates a new RestaurantUseCase
func NewRestaurantUseCase(
	txManager database.TxManager,
	approvalRepo OrderApprovalRepository,
	restaurantRepo RestaurantRepository,
	outboxRepo OutboxMessageRepository,
	inboxRepo InboxMessageRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *RestaurantUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	return &RestaurantUseCase{
		txManager:      txManager,
		approvalRepo:   approvalRepo,
		restaurantRepo: restaurantRepo,
		outboxRepo:     outboxRepo,
		inboxRepo:      inboxRepo,
		metrics:        businessMetrics,
		logger:         logger,
	}
}

// HandleApprovalRequest validates a paid order against the restaurant rules
// and records the decision together with the outbox response in one
// transaction.
func (uc *RestaurantUseCase) HandleApprovalRequest(
	ctx context.Context,
	request saga.RestaurantApprovalRequest,
) error {
	start := time.Now()

	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		applied, err := uc.recordInbound(ctx, request)
		if err != nil || !applied {
			return err
		}

		if _, err := uc.approvalRepo.GetByOrderID(ctx, request.OrderID); err == nil {
			// Already applied by an earlier delivery; the response was written
			// in the same transaction and the relay guarantees delivery.
			return nil
		} else if !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		restaurant, err := uc.restaurantRepo.GetByID(ctx, request.RestaurantID)
		if err != nil {
			return err
		}

		totalAmount, err := decimal.NewFromString(request.Price)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid order price: "+request.Price)
		}

		products, err := orderedProducts(request.Products)
		if err != nil {
			return err
		}

		approval := domain.NewOrderApproval(request.OrderID, request.RestaurantID)
		failureMessages := domain.ValidateOrderApproval(approval, restaurant, products, totalAmount)

		if err := uc.approvalRepo.Create(ctx, approval); err != nil {
			return err
		}

		if err := uc.emitResponse(ctx, approval, failureMessages); err != nil {
			return err
		}

		if uc.logger != nil {
			uc.logger.Info("order approval processed",
				slog.String("order_id", approval.OrderID.String()),
				slog.String("restaurant_id", approval.RestaurantID.String()),
				slog.String("status", string(approval.Status)),
				slog.Int("failures", len(failureMessages)),
			)
		}
		uc.metrics.RecordOperation(ctx, "approval", "approval_request", string(approval.Status))
		uc.metrics.RecordDuration(ctx, "approval", "approval_request", time.Since(start), string(approval.Status))

		return nil
	})
}

// recordInbound inserts the inbox row for the request. Returns false when the
// request was already processed and must be discarded.
func (uc *RestaurantUseCase) recordInbound(
	ctx context.Context,
	request saga.RestaurantApprovalRequest,
) (bool, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal inbox payload")
	}

	message := inboxDomain.New(request.SagaID, saga.MessageTypeApprovalRequest,
		string(data), string(request.RestaurantOrderStatus))
	if err := uc.inboxRepo.Create(ctx, message); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			if uc.logger != nil {
				uc.logger.Info("duplicate message discarded",
					slog.String("saga_id", request.SagaID.String()),
					slog.String("message_type", string(saga.MessageTypeApprovalRequest)),
				)
			}
			uc.metrics.RecordOperation(ctx, "approval", "inbox_dedup", "duplicate")
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// emitResponse records the approval response in the outbox.
func (uc *RestaurantUseCase) emitResponse(
	ctx context.Context,
	approval *domain.OrderApproval,
	failureMessages []string,
) error {
	response := saga.RestaurantApprovalResponse{
		SagaID:              approval.OrderID,
		OrderID:             approval.OrderID,
		RestaurantID:        approval.RestaurantID,
		CreatedAt:           time.Now().UTC(),
		OrderApprovalStatus: saga.OrderApprovalStatus(approval.Status),
		FailureMessages:     failureMessages,
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal approval response")
	}

	return uc.outboxRepo.Create(ctx,
		outboxDomain.New(approval.OrderID, saga.MessageTypeApprovalResponse, string(payload)))
}

// orderedProducts converts the wire products into domain values.
func orderedProducts(products []saga.ApprovalRequestProduct) ([]domain.OrderedProduct, error) {
	out := make([]domain.OrderedProduct, 0, len(products))
	for _, product := range products {
		price, err := decimal.NewFromString(product.Price)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid product price: "+product.Price)
		}
		out = append(out, domain.OrderedProduct{
			ProductID: product.ProductID,
			Quantity:  product.Quantity,
			Price:     price,
		})
	}
	return out, nil
}
