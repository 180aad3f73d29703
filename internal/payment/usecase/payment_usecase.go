// Package usecase implements the payment side of the order saga: reserving
// customer credit for new orders and returning it when a saga compensates.
// Every request is handled in one atomic unit of work covering the payment,
// the credit balance, the movement history, the inbox record and the outbox
// response.
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
	"github.com/allisson/food-ordering-saga/internal/payment/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// UseCase defines the interface for payment business logic operations
type UseCase interface {
	HandlePaymentRequest(ctx context.Context, request saga.PaymentRequest) error
}

// PaymentRepository defines payment repository operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
}

// CreditEntryRepository defines credit balance repository operations
type CreditEntryRepository interface {
	GetByCustomerID(ctx context.Context, customerID uuid.UUID) (*domain.CreditEntry, error)
	Update(ctx context.Context, creditEntry *domain.CreditEntry) error
}

// CreditHistoryRepository defines credit movement repository operations
type CreditHistoryRepository interface {
	Create(ctx context.Context, history *domain.CreditHistory) error
	ListByCustomerID(ctx context.Context, customerID uuid.UUID) ([]*domain.CreditHistory, error)
}

// OutboxMessageRepository defines the outbox operations the saga handler needs
type OutboxMessageRepository interface {
	Create(ctx context.Context, message *outboxDomain.OutboxMessage) error
}

// InboxMessageRepository defines the inbox operations the saga handler needs
type InboxMessageRepository interface {
	Create(ctx context.Context, message *inboxDomain.InboxMessage) error
}

// PaymentUseCase handles payment-related business logic
type PaymentUseCase struct {
	txManager         database.TxManager
	paymentRepo       PaymentRepository
	creditEntryRepo   CreditEntryRepository
	creditHistoryRepo CreditHistoryRepository
	outboxRepo        OutboxMessageRepository
	inboxRepo         InboxMessageRepository
	creditPolicy      domain.CreditPolicy
	metrics           metrics.BusinessMetrics
	logger            *slog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase. A nil creditPolicy falls
// back to the default full-amount policy.
func NewPaymentUseCase(
	txManager database.TxManager,
	paymentRepo PaymentRepository,
	creditEntryRepo CreditEntryRepository,
	creditHistoryRepo CreditHistoryRepository,
	outboxRepo OutboxMessageRepository,
	inboxRepo InboxMessageRepository,
	creditPolicy domain.CreditPolicy,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *PaymentUseCase {
	if creditPolicy == nil {
		creditPolicy = domain.DefaultCreditPolicy{}
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}

	return &PaymentUseCase{
		txManager:         txManager,
		paymentRepo:       paymentRepo,
		creditEntryRepo:   creditEntryRepo,
		creditHistoryRepo: creditHistoryRepo,
		outboxRepo:        outboxRepo,
		inboxRepo:         inboxRepo,
		creditPolicy:      creditPolicy,
		metrics:           businessMetrics,
		logger:            logger,
	}
}

// HandlePaymentRequest processes a payment request from the order service.
// A pending request reserves customer credit, a cancelled request compensates
// a completed payment. Either way a payment response lands in the outbox
// within the same transaction.
func (uc *PaymentUseCase) HandlePaymentRequest(ctx context.Context, request saga.PaymentRequest) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		applied, err := uc.recordInbound(ctx, request)
		if err != nil || !applied {
			return err
		}

		switch request.PaymentOrderStatus {
		case saga.PaymentOrderStatusPending:
			return uc.completePayment(ctx, request)
		case saga.PaymentOrderStatusCancelled:
			return uc.cancelPayment(ctx, request)
		default:
			return apperrors.Wrap(apperrors.ErrInvalidInput,
				"unknown payment order status: "+string(request.PaymentOrderStatus))
		}
	})
}

// recordInbound inserts the inbox row for the request. Returns false when the
// request was already processed and must be discarded.
func (uc *PaymentUseCase) recordInbound(ctx context.Context, request saga.PaymentRequest) (bool, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal inbox payload")
	}

	message := inboxDomain.New(request.SagaID, saga.MessageTypePaymentRequest,
		string(data), string(request.PaymentOrderStatus))
	if err := uc.inboxRepo.Create(ctx, message); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			if uc.logger != nil {
				uc.logger.Info("duplicate message discarded",
					slog.String("saga_id", request.SagaID.String()),
					slog.String("message_type", string(saga.MessageTypePaymentRequest)),
					slog.String("saga_status", string(request.PaymentOrderStatus)),
				)
			}
			uc.metrics.RecordOperation(ctx, "payment", "inbox_dedup", "duplicate")
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// completePayment reserves credit for a new order and records the outcome.
// On validation failure only the failed payment is persisted: the balance and
// history stay untouched.
func (uc *PaymentUseCase) completePayment(ctx context.Context, request saga.PaymentRequest) error {
	start := time.Now()

	if existing, err := uc.paymentRepo.GetByOrderID(ctx, request.OrderID); err == nil {
		// Already applied by an earlier delivery; the response was written in
		// the same transaction and the relay guarantees delivery.
		if uc.logger != nil {
			uc.logger.Info("payment already exists",
				slog.String("order_id", request.OrderID.String()),
				slog.String("status", string(existing.Status)),
			)
		}
		return nil
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	price, err := decimal.NewFromString(request.Price)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "invalid payment price: "+request.Price)
	}

	payment := domain.NewPayment(request.OrderID, request.CustomerID, price)

	creditEntry, err := uc.creditEntryRepo.GetByCustomerID(ctx, request.CustomerID)
	if err != nil {
		return err
	}

	creditHistories, err := uc.creditHistoryRepo.ListByCustomerID(ctx, request.CustomerID)
	if err != nil {
		return err
	}

	history, failureMessages := domain.ValidateAndInitiatePayment(payment, creditEntry,
		creditHistories, uc.creditPolicy)

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		return err
	}

	if payment.Status == domain.PaymentStatusCompleted {
		if err := uc.creditEntryRepo.Update(ctx, creditEntry); err != nil {
			return err
		}
		if err := uc.creditHistoryRepo.Create(ctx, history); err != nil {
			return err
		}
	}

	if err := uc.emitResponse(ctx, payment, failureMessages); err != nil {
		return err
	}

	uc.logOutcome(ctx, payment, failureMessages)
	uc.metrics.RecordDuration(ctx, "payment", "payment_request", time.Since(start), string(payment.Status))
	return nil
}

// cancelPayment compensates a completed payment: credit flows back to the
// customer and the order service gets the cancelled response.
func (uc *PaymentUseCase) cancelPayment(ctx context.Context, request saga.PaymentRequest) error {
	payment, err := uc.paymentRepo.GetByOrderID(ctx, request.OrderID)
	if err != nil {
		return err
	}

	if payment.Status == domain.PaymentStatusCancelled {
		return nil
	}

	creditEntry, err := uc.creditEntryRepo.GetByCustomerID(ctx, payment.CustomerID)
	if err != nil {
		return err
	}

	history, err := domain.ValidateAndCancelPayment(payment, creditEntry)
	if err != nil {
		// A failed payment never debited the balance, so there is nothing to
		// return; re-crediting here would mint money.
		return err
	}

	if err := uc.paymentRepo.Update(ctx, payment); err != nil {
		return err
	}
	if err := uc.creditEntryRepo.Update(ctx, creditEntry); err != nil {
		return err
	}
	if err := uc.creditHistoryRepo.Create(ctx, history); err != nil {
		return err
	}

	if err := uc.emitResponse(ctx, payment, nil); err != nil {
		return err
	}

	uc.logOutcome(ctx, payment, nil)
	return nil
}

// emitResponse records the payment response in the outbox.
func (uc *PaymentUseCase) emitResponse(
	ctx context.Context,
	payment *domain.Payment,
	failureMessages []string,
) error {
	response := saga.PaymentResponse{
		SagaID:          payment.OrderID,
		OrderID:         payment.OrderID,
		PaymentID:       payment.ID,
		CustomerID:      payment.CustomerID,
		Price:           payment.Price.StringFixed(2),
		CreatedAt:       time.Now().UTC(),
		PaymentStatus:   saga.PaymentStatus(payment.Status),
		FailureMessages: failureMessages,
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal payment response")
	}

	return uc.outboxRepo.Create(ctx,
		outboxDomain.New(payment.OrderID, saga.MessageTypePaymentResponse, string(payload)))
}

func (uc *PaymentUseCase) logOutcome(ctx context.Context, payment *domain.Payment, failureMessages []string) {
	if uc.logger != nil {
		uc.logger.Info("payment processed",
			slog.String("payment_id", payment.ID.String()),
			slog.String("order_id", payment.OrderID.String()),
			slog.String("status", string(payment.Status)),
			slog.Int("failures", len(failureMessages)),
		)
	}
	uc.metrics.RecordOperation(ctx, "payment", "payment_request", string(payment.Status))
}
