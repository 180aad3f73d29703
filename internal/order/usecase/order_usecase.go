// Package usecase implements the order business logic and the order side of
// the saga: order creation, payment responses and restaurant approval
// responses. Every saga step runs as one atomic unit of work that writes the
// aggregate, the inbox record and the next outbox message together.
package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	"github.com/allisson/food-ordering-saga/internal/database"
	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	inboxDomain "github.com/allisson/food-ordering-saga/internal/inbox/domain"
	"github.com/allisson/food-ordering-saga/internal/metrics"
	"github.com/allisson/food-ordering-saga/internal/order/domain"
	outboxDomain "github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
	appValidation "github.com/allisson/food-ordering-saga/internal/validation"
)

// CreateOrderItemInput is one item of an order creation request.
type CreateOrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	SubTotal  string `json:"sub_total"`
}

// CreateOrderInput contains the input data for order creation.
// Monetary values are fixed-point decimal strings.
type CreateOrderInput struct {
	CustomerID   string                 `json:"customer_id"`
	RestaurantID string                 `json:"restaurant_id"`
	Price        string                 `json:"price"`
	Items        []CreateOrderItemInput `json:"items"`
}

// UseCase defines the interface for order business logic operations
type UseCase interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	TrackOrder(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error)
	HandlePaymentResponse(ctx context.Context, response saga.PaymentResponse) error
	HandleApprovalResponse(ctx context.Context, response saga.RestaurantApprovalResponse) error
}

// OrderRepository defines order repository operations
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByTrackingID(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error)
}

// CustomerRepository defines customer lookup operations
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
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

// OrderUseCase handles order-related business logic
type OrderUseCase struct {
	txManager      database.TxManager
	orderRepo      OrderRepository
	customerRepo   CustomerRepository
	restaurantRepo RestaurantRepository
	outboxRepo     OutboxMessageRepository
	inboxRepo      InboxMessageRepository
	metrics        metrics.BusinessMetrics
	logger         *slog.Logger
}

// NewOrderUseCase creates a new OrderUseCase
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	customerRepo CustomerRepository,
	restaurantRepo RestaurantRepository,
	outboxRepo OutboxMessageRepository,
	inboxRepo InboxMessageRepository,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *OrderUseCase {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	return &OrderUseCase{
		txManager:      txManager,
		orderRepo:      orderRepo,
		customerRepo:   customerRepo,
		restaurantRepo: restaurantRepo,
		outboxRepo:     outboxRepo,
		inboxRepo:      inboxRepo,
		metrics:        businessMetrics,
		logger:         logger,
	}
}

// validateCreateOrderInput validates the creation input using jellydator/validation
func (uc *OrderUseCase) validateCreateOrderInput(input CreateOrderInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.CustomerID,
			validation.Required.Error("customer_id is required"),
			appValidation.UUIDString,
		),
		validation.Field(&input.RestaurantID,
			validation.Required.Error("restaurant_id is required"),
			appValidation.UUIDString,
		),
		validation.Field(&input.Price,
			validation.Required.Error("price is required"),
			appValidation.PositiveDecimalString,
		),
		validation.Field(&input.Items,
			validation.Required.Error("items is required"),
			validation.Each(validation.By(func(value interface{}) error {
				item, ok := value.(CreateOrderItemInput)
				if !ok {
					return validation.NewError("validation_item", "invalid item")
				}
				return validation.ValidateStruct(&item,
					validation.Field(&item.ProductID,
						validation.Required.Error("product_id is required"),
						appValidation.UUIDString,
					),
					validation.Field(&item.Quantity,
						validation.Min(1).Error("quantity must be greater than zero"),
					),
					validation.Field(&item.Price,
						validation.Required.Error("price is required"),
						appValidation.PositiveDecimalString,
					),
					validation.Field(&item.SubTotal,
						validation.Required.Error("sub_total is required"),
						appValidation.PositiveDecimalString,
					),
				)
			})),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateOrder validates the request against the customer and restaurant
// views, initiates the order saga and records the payment request in the
// outbox within the same transaction as the order itself.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	start := time.Now()

	if err := uc.validateCreateOrderInput(input); err != nil {
		uc.metrics.RecordOperation(ctx, "order", "create_order", "invalid")
		return nil, err
	}

	order, err := uc.buildOrder(input)
	if err != nil {
		uc.metrics.RecordOperation(ctx, "order", "create_order", "invalid")
		return nil, err
	}

	if _, err := uc.customerRepo.GetByID(ctx, order.CustomerID); err != nil {
		if uc.logger != nil {
			uc.logger.Warn("could not find customer", slog.String("customer_id", order.CustomerID.String()))
		}
		return nil, err
	}

	restaurant, err := uc.restaurantRepo.GetByID(ctx, order.RestaurantID)
	if err != nil {
		if uc.logger != nil {
			uc.logger.Warn("could not find restaurant", slog.String("restaurant_id", order.RestaurantID.String()))
		}
		return nil, err
	}

	if err := domain.ValidateAndInitiateOrder(order, restaurant); err != nil {
		if uc.logger != nil {
			uc.logger.Warn("order validation failed", slog.Any("error", err))
		}
		uc.metrics.RecordOperation(ctx, "order", "create_order", "rejected")
		return nil, err
	}

	outboxMessage, err := uc.paymentRequestMessage(order, saga.PaymentOrderStatusPending)
	if err != nil {
		return nil, err
	}

	err = uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		return uc.outboxRepo.Create(ctx, outboxMessage)
	})
	if err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("order created",
			slog.String("order_id", order.ID.String()),
			slog.String("tracking_id", order.TrackingID.String()),
			slog.String("status", string(order.Status)),
		)
	}
	uc.metrics.RecordOperation(ctx, "order", "create_order", "success")
	uc.metrics.RecordDuration(ctx, "order", "create_order", time.Since(start), "success")

	return order, nil
}

// TrackOrder retrieves an order by its tracking identity.
func (uc *OrderUseCase) TrackOrder(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error) {
	return uc.orderRepo.GetByTrackingID(ctx, trackingID)
}

// HandlePaymentResponse advances the order saga on a payment outcome:
// completed pays the order and requests restaurant approval, failed cancels a
// pending order directly, cancelled finishes the compensation path.
func (uc *OrderUseCase) HandlePaymentResponse(ctx context.Context, response saga.PaymentResponse) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		applied, err := uc.recordInbound(ctx, response.SagaID, saga.MessageTypePaymentResponse,
			string(response.PaymentStatus), response)
		if err != nil || !applied {
			return err
		}

		order, err := uc.orderRepo.GetByID(ctx, response.OrderID)
		if err != nil {
			return err
		}

		switch response.PaymentStatus {
		case saga.PaymentStatusCompleted:
			return uc.payOrder(ctx, order)
		case saga.PaymentStatusFailed:
			return uc.cancelOrder(ctx, order, response.FailureMessages)
		case saga.PaymentStatusCancelled:
			return uc.cancelOrder(ctx, order, response.FailureMessages)
		default:
			return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown payment status: "+string(response.PaymentStatus))
		}
	})
}

// HandleApprovalResponse finalizes the saga on approval or starts the
// compensation path on rejection.
func (uc *OrderUseCase) HandleApprovalResponse(ctx context.Context, response saga.RestaurantApprovalResponse) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		applied, err := uc.recordInbound(ctx, response.SagaID, saga.MessageTypeApprovalResponse,
			string(response.OrderApprovalStatus), response)
		if err != nil || !applied {
			return err
		}

		order, err := uc.orderRepo.GetByID(ctx, response.OrderID)
		if err != nil {
			return err
		}

		switch response.OrderApprovalStatus {
		case saga.OrderApprovalStatusApproved:
			return uc.approveOrder(ctx, order)
		case saga.OrderApprovalStatusRejected:
			return uc.initOrderCancel(ctx, order, response.FailureMessages)
		default:
			return apperrors.Wrap(apperrors.ErrInvalidInput,
				"unknown approval status: "+string(response.OrderApprovalStatus))
		}
	})
}

// recordInbound inserts the inbox row for the message. Returns false when the
// message was already processed: redelivery is discarded with a log entry and
// the previously recorded outbox message stands as the answer.
func (uc *OrderUseCase) recordInbound(
	ctx context.Context,
	sagaID uuid.UUID,
	messageType saga.MessageType,
	sagaStatus string,
	payload any,
) (bool, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal inbox payload")
	}

	err = uc.inboxRepo.Create(ctx, inboxDomain.New(sagaID, messageType, string(data), sagaStatus))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			if uc.logger != nil {
				uc.logger.Info("duplicate message discarded",
					slog.String("saga_id", sagaID.String()),
					slog.String("message_type", string(messageType)),
					slog.String("saga_status", sagaStatus),
				)
			}
			uc.metrics.RecordOperation(ctx, "order", "inbox_dedup", "duplicate")
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// payOrder moves the order to paid and chains the restaurant approval request.
func (uc *OrderUseCase) payOrder(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusPaid {
		// Already applied by an earlier delivery; the approval request was
		// written in the same transaction and the relay guarantees delivery.
		return nil
	}

	if err := order.Pay(); err != nil {
		return err
	}

	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	outboxMessage, err := uc.approvalRequestMessage(order)
	if err != nil {
		return err
	}
	if err := uc.outboxRepo.Create(ctx, outboxMessage); err != nil {
		return err
	}

	uc.logTransition(ctx, order, "payment_response")
	return nil
}

// approveOrder finalizes the saga with the terminal success status.
func (uc *OrderUseCase) approveOrder(ctx context.Context, order *domain.Order) error {
	if order.Status == domain.OrderStatusApproved {
		return nil
	}

	if err := order.Approve(); err != nil {
		return err
	}

	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	uc.logTransition(ctx, order, "approval_response")
	return nil
}

// initOrderCancel starts compensation: the order waits in cancelling until the
// payment service confirms the refund.
func (uc *OrderUseCase) initOrderCancel(ctx context.Context, order *domain.Order, failureMessages []string) error {
	if order.Status == domain.OrderStatusCancelling {
		return nil
	}

	if err := order.InitCancel(failureMessages); err != nil {
		return err
	}

	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	outboxMessage, err := uc.paymentRequestMessage(order, saga.PaymentOrderStatusCancelled)
	if err != nil {
		return err
	}
	if err := uc.outboxRepo.Create(ctx, outboxMessage); err != nil {
		return err
	}

	uc.logTransition(ctx, order, "approval_response")
	return nil
}

// cancelOrder terminates the saga. No outbound message: a pending order had
// nothing reserved and a cancelling order just finished unwinding.
func (uc *OrderUseCase) cancelOrder(ctx context.Context, order *domain.Order, failureMessages []string) error {
	if order.Status == domain.OrderStatusCancelled {
		return nil
	}

	if err := order.Cancel(failureMessages); err != nil {
		return err
	}

	if err := uc.orderRepo.Update(ctx, order); err != nil {
		return err
	}

	uc.logTransition(ctx, order, "payment_response")
	return nil
}

// buildOrder converts the validated input into an order aggregate. Input
// fields are trimmed before parsing, matching the validation rules, so a
// request that passed validation never fails here on surrounding whitespace.
func (uc *OrderUseCase) buildOrder(input CreateOrderInput) (*domain.Order, error) {
	customerID, err := uuid.Parse(strings.TrimSpace(input.CustomerID))
	if err != nil {
		return nil, appValidation.WrapValidationError(err)
	}
	restaurantID, err := uuid.Parse(strings.TrimSpace(input.RestaurantID))
	if err != nil {
		return nil, appValidation.WrapValidationError(err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil {
		return nil, appValidation.WrapValidationError(err)
	}

	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, itemInput := range input.Items {
		productID, err := uuid.Parse(strings.TrimSpace(itemInput.ProductID))
		if err != nil {
			return nil, appValidation.WrapValidationError(err)
		}
		itemPrice, err := decimal.NewFromString(strings.TrimSpace(itemInput.Price))
		if err != nil {
			return nil, appValidation.WrapValidationError(err)
		}
		subTotal, err := decimal.NewFromString(strings.TrimSpace(itemInput.SubTotal))
		if err != nil {
			return nil, appValidation.WrapValidationError(err)
		}

		items = append(items, domain.OrderItem{
			ProductID: productID,
			Quantity:  itemInput.Quantity,
			Price:     itemPrice,
			SubTotal:  subTotal,
		})
	}

	return &domain.Order{
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Price:        price,
		Items:        items,
	}, nil
}

// paymentRequestMessage builds the outbox message asking the payment service
// to reserve or compensate the payment. The order ID doubles as the saga ID:
// one saga instance per order.
func (uc *OrderUseCase) paymentRequestMessage(
	order *domain.Order,
	status saga.PaymentOrderStatus,
) (*outboxDomain.OutboxMessage, error) {
	request := saga.PaymentRequest{
		SagaID:             order.ID,
		OrderID:            order.ID,
		CustomerID:         order.CustomerID,
		Price:              order.Price.StringFixed(2),
		CreatedAt:          time.Now().UTC(),
		PaymentOrderStatus: status,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal payment request")
	}

	return outboxDomain.New(order.ID, saga.MessageTypePaymentRequest, string(payload)), nil
}

// approvalRequestMessage builds the outbox message asking the restaurant
// service to approve a paid order.
func (uc *OrderUseCase) approvalRequestMessage(order *domain.Order) (*outboxDomain.OutboxMessage, error) {
	products := make([]saga.ApprovalRequestProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, saga.ApprovalRequestProduct{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}

	request := saga.RestaurantApprovalRequest{
		SagaID:                order.ID,
		OrderID:               order.ID,
		RestaurantID:          order.RestaurantID,
		Price:                 order.Price.StringFixed(2),
		Products:              products,
		CreatedAt:             time.Now().UTC(),
		RestaurantOrderStatus: saga.RestaurantOrderStatusPaid,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal approval request")
	}

	return outboxDomain.New(order.ID, saga.MessageTypeApprovalRequest, string(payload)), nil
}

// logTransition records a saga transition at the defined log point.
func (uc *OrderUseCase) logTransition(ctx context.Context, order *domain.Order, trigger string) {
	if uc.logger != nil {
		uc.logger.Info("order saga transition",
			slog.String("order_id", order.ID.String()),
			slog.String("status", string(order.Status)),
			slog.String("trigger", trigger),
			slog.Int("version", order.Version),
		)
	}
	uc.metrics.RecordOperation(ctx, "order", trigger, string(order.Status))
}
