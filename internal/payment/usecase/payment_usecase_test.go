package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/food-ordering-saga/internal/errors"
	inboxDomain "github.com/allisson/food-ordering-saga/internal/inbox/domain"
	outboxDomain "github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/payment/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	// Execute the function to test the logic inside
	return fn(ctx)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

// MockCreditEntryRepository is a mock implementation of CreditEntryRepository
type MockCreditEntryRepository struct {
	mock.Mock
}

func (m *MockCreditEntryRepository) GetByCustomerID(
	ctx context.Context,
	customerID uuid.UUID,
) (*domain.CreditEntry, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreditEntry), args.Error(1)
}

func (m *MockCreditEntryRepository) Update(ctx context.Context, creditEntry *domain.CreditEntry) error {
	args := m.Called(ctx, creditEntry)
	return args.Error(0)
}

// MockCreditHistoryRepository is a mock implementation of CreditHistoryRepository
type MockCreditHistoryRepository struct {
	mock.Mock
}

func (m *MockCreditHistoryRepository) Create(ctx context.Context, history *domain.CreditHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockCreditHistoryRepository) ListByCustomerID(
	ctx context.Context,
	customerID uuid.UUID,
) ([]*domain.CreditHistory, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CreditHistory), args.Error(1)
}

// MockOutboxMessageRepository is a mock implementation of OutboxMessageRepository
type MockOutboxMessageRepository struct {
	mock.Mock
}

func (m *MockOutboxMessageRepository) Create(ctx context.Context, message *outboxDomain.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// MockInboxMessageRepository is a mock implementation of InboxMessageRepository
type MockInboxMessageRepository struct {
	mock.Mock
}

func (m *MockInboxMessageRepository) Create(ctx context.Context, message *inboxDomain.InboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type paymentUseCaseMocks struct {
	txManager         *MockTxManager
	paymentRepo       *MockPaymentRepository
	creditEntryRepo   *MockCreditEntryRepository
	creditHistoryRepo *MockCreditHistoryRepository
	outboxRepo        *MockOutboxMessageRepository
	inboxRepo         *MockInboxMessageRepository
}

func newPaymentUseCase() (*PaymentUseCase, *paymentUseCaseMocks) {
	mocks := &paymentUseCaseMocks{
		txManager:         &MockTxManager{},
		paymentRepo:       &MockPaymentRepository{},
		creditEntryRepo:   &MockCreditEntryRepository{},
		creditHistoryRepo: &MockCreditHistoryRepository{},
		outboxRepo:        &MockOutboxMessageRepository{},
		inboxRepo:         &MockInboxMessageRepository{},
	}

	useCase := NewPaymentUseCase(
		mocks.txManager,
		mocks.paymentRepo,
		mocks.creditEntryRepo,
		mocks.creditHistoryRepo,
		mocks.outboxRepo,
		mocks.inboxRepo,
		nil,
		nil,
		nil,
	)

	return useCase, mocks
}

func pendingRequest(orderID, customerID uuid.UUID, price string) saga.PaymentRequest {
	return saga.PaymentRequest{
		SagaID:             orderID,
		OrderID:            orderID,
		CustomerID:         customerID,
		Price:              price,
		PaymentOrderStatus: saga.PaymentOrderStatusPending,
	}
}

func TestPaymentUseCase_HandlePaymentRequest_Completed(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := pendingRequest(orderID, customerID, "200.00")

	creditEntry := &domain.CreditEntry{
		ID:                uuid.Must(uuid.NewV7()),
		CustomerID:        customerID,
		TotalCreditAmount: decimal.RequireFromString("500.00"),
		Version:           1,
	}
	histories := []*domain.CreditHistory{
		domain.NewCreditHistory(customerID, decimal.RequireFromString("500.00"), domain.TransactionTypeCredit),
	}

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(nil, domain.ErrPaymentNotFound)
	mocks.creditEntryRepo.On("GetByCustomerID", ctx, customerID).Return(creditEntry, nil)
	mocks.creditHistoryRepo.On("ListByCustomerID", ctx, customerID).Return(histories, nil)
	mocks.paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
	mocks.creditEntryRepo.On("Update", ctx, creditEntry).Return(nil)
	mocks.creditHistoryRepo.On("Create", ctx, mock.AnythingOfType("*domain.CreditHistory")).Return(nil)
	mocks.outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxMessage")).Return(nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	assert.True(t, creditEntry.TotalCreditAmount.Equal(decimal.RequireFromString("300.00")))

	outboxMessage := mocks.outboxRepo.Calls[0].Arguments.Get(1).(*outboxDomain.OutboxMessage)
	assert.Equal(t, orderID, outboxMessage.SagaID)
	assert.Equal(t, saga.MessageTypePaymentResponse, outboxMessage.Type)

	var response saga.PaymentResponse
	require.NoError(t, json.Unmarshal([]byte(outboxMessage.Payload), &response))
	assert.Equal(t, saga.PaymentStatusCompleted, response.PaymentStatus)
	assert.Equal(t, "200.00", response.Price)
	assert.Empty(t, response.FailureMessages)
}

func TestPaymentUseCase_HandlePaymentRequest_InsufficientCredit(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := pendingRequest(orderID, customerID, "200.00")

	creditEntry := &domain.CreditEntry{
		ID:                uuid.Must(uuid.NewV7()),
		CustomerID:        customerID,
		TotalCreditAmount: decimal.RequireFromString("50.00"),
		Version:           1,
	}

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(nil, domain.ErrPaymentNotFound)
	mocks.creditEntryRepo.On("GetByCustomerID", ctx, customerID).Return(creditEntry, nil)
	mocks.creditHistoryRepo.On("ListByCustomerID", ctx, customerID).Return([]*domain.CreditHistory{}, nil)
	mocks.paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)
	mocks.outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxMessage")).Return(nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	// The failed payment is persisted but the balance stays untouched.
	mocks.creditEntryRepo.AssertNotCalled(t, "Update")
	mocks.creditHistoryRepo.AssertNotCalled(t, "Create")

	outboxMessage := mocks.outboxRepo.Calls[0].Arguments.Get(1).(*outboxDomain.OutboxMessage)
	var response saga.PaymentResponse
	require.NoError(t, json.Unmarshal([]byte(outboxMessage.Payload), &response))
	assert.Equal(t, saga.PaymentStatusFailed, response.PaymentStatus)
	assert.Equal(t,
		[]string{fmt.Sprintf("Customer with id=%s doesn't have enough credit for payment!", customerID)},
		response.FailureMessages)
}

func TestPaymentUseCase_HandlePaymentRequest_DuplicateDiscarded(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	request := pendingRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), "200.00")

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).
		Return(apperrors.Wrap(apperrors.ErrConflict, "message already processed"))

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	mocks.paymentRepo.AssertNotCalled(t, "GetByOrderID")
	mocks.outboxRepo.AssertNotCalled(t, "Create")
}

func TestPaymentUseCase_HandlePaymentRequest_PaymentAlreadyExists(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := pendingRequest(orderID, customerID, "200.00")

	existing := domain.NewPayment(orderID, customerID, decimal.RequireFromString("200.00"))
	existing.Complete()

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(existing, nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	mocks.paymentRepo.AssertNotCalled(t, "Create")
	mocks.outboxRepo.AssertNotCalled(t, "Create")
}

func TestPaymentUseCase_HandlePaymentRequest_Cancel(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := saga.PaymentRequest{
		SagaID:             orderID,
		OrderID:            orderID,
		CustomerID:         customerID,
		Price:              "200.00",
		PaymentOrderStatus: saga.PaymentOrderStatusCancelled,
	}

	payment := domain.NewPayment(orderID, customerID, decimal.RequireFromString("200.00"))
	payment.Complete()
	payment.Version = 1

	creditEntry := &domain.CreditEntry{
		ID:                uuid.Must(uuid.NewV7()),
		CustomerID:        customerID,
		TotalCreditAmount: decimal.RequireFromString("300.00"),
		Version:           2,
	}

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(payment, nil)
	mocks.creditEntryRepo.On("GetByCustomerID", ctx, customerID).Return(creditEntry, nil)
	mocks.paymentRepo.On("Update", ctx, payment).Return(nil)
	mocks.creditEntryRepo.On("Update", ctx, creditEntry).Return(nil)
	mocks.creditHistoryRepo.On("Create", ctx, mock.AnythingOfType("*domain.CreditHistory")).Return(nil)
	mocks.outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxMessage")).Return(nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, payment.Status)
	assert.True(t, creditEntry.TotalCreditAmount.Equal(decimal.RequireFromString("500.00")))

	outboxMessage := mocks.outboxRepo.Calls[0].Arguments.Get(1).(*outboxDomain.OutboxMessage)
	var response saga.PaymentResponse
	require.NoError(t, json.Unmarshal([]byte(outboxMessage.Payload), &response))
	assert.Equal(t, saga.PaymentStatusCancelled, response.PaymentStatus)
}

func TestPaymentUseCase_HandlePaymentRequest_CancelAlreadyCancelled(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := saga.PaymentRequest{
		SagaID:             orderID,
		OrderID:            orderID,
		CustomerID:         customerID,
		Price:              "200.00",
		PaymentOrderStatus: saga.PaymentOrderStatusCancelled,
	}

	payment := domain.NewPayment(orderID, customerID, decimal.RequireFromString("200.00"))
	payment.Cancel()

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(payment, nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	require.NoError(t, err)
	mocks.paymentRepo.AssertNotCalled(t, "Update")
	mocks.creditEntryRepo.AssertNotCalled(t, "GetByCustomerID")
}

func TestPaymentUseCase_HandlePaymentRequest_CancelFailedPayment(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	request := saga.PaymentRequest{
		SagaID:             orderID,
		OrderID:            orderID,
		CustomerID:         customerID,
		Price:              "200.00",
		PaymentOrderStatus: saga.PaymentOrderStatusCancelled,
	}

	payment := domain.NewPayment(orderID, customerID, decimal.RequireFromString("200.00"))
	payment.Fail()

	creditEntry := &domain.CreditEntry{
		ID:                uuid.Must(uuid.NewV7()),
		CustomerID:        customerID,
		TotalCreditAmount: decimal.RequireFromString("100.00"),
		Version:           1,
	}

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(payment, nil)
	mocks.creditEntryRepo.On("GetByCustomerID", ctx, customerID).Return(creditEntry, nil)

	err := useCase.HandlePaymentRequest(ctx, request)

	// A failed payment never debited the customer, so compensating it is an
	// illegal transition and must not touch the balance or the history.
	assert.ErrorIs(t, err, apperrors.ErrIllegalState)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.True(t, creditEntry.TotalCreditAmount.Equal(decimal.RequireFromString("100.00")))
	mocks.paymentRepo.AssertNotCalled(t, "Update")
	mocks.creditEntryRepo.AssertNotCalled(t, "Update")
	mocks.creditHistoryRepo.AssertNotCalled(t, "Create")
	mocks.outboxRepo.AssertNotCalled(t, "Create")
}

func TestPaymentUseCase_HandlePaymentRequest_InvalidPrice(t *testing.T) {
	useCase, mocks := newPaymentUseCase()
	ctx := context.Background()

	orderID := uuid.Must(uuid.NewV7())
	request := pendingRequest(orderID, uuid.Must(uuid.NewV7()), "not-a-price")

	mocks.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	mocks.inboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.InboxMessage")).Return(nil)
	mocks.paymentRepo.On("GetByOrderID", ctx, orderID).Return(nil, domain.ErrPaymentNotFound)

	err := useCase.HandlePaymentRequest(ctx, request)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
