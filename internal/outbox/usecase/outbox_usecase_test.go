package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/food-ordering-saga/internal/outbox/domain"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockOutboxMessageRepository struct {
	mock.Mock
}

func (m *MockOutboxMessageRepository) Create(ctx context.Context, message *domain.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxMessageRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxMessage), args.Error(1)
}

func (m *MockOutboxMessageRepository) Update(ctx context.Context, message *domain.OutboxMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxMessageRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

func testConfig() Config {
	return Config{
		Interval:        10 * time.Millisecond,
		BatchSize:       100,
		MaxRetries:      3,
		RetentionPeriod: 72 * time.Hour,
	}
}

func TestOutboxUseCase_ProcessMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes pending messages and marks them completed", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		sagaID := uuid.Must(uuid.NewV7())
		message := domain.New(sagaID, saga.MessageTypePaymentRequest, `{"saga_id":"x"}`)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return([]*domain.OutboxMessage{message}, nil)
		publisher.On("Publish", ctx, saga.TopicPaymentRequest, sagaID.String(), []byte(`{"saga_id":"x"}`)).Return(nil)
		outboxRepo.On("Update", ctx, message).Return(nil)

		err := useCase.ProcessMessages(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.OutboxMessageStatusCompleted, message.Status)
		require.NotNil(t, message.ProcessedAt)
		assert.Equal(t, 0, message.Retries)
		publisher.AssertExpectations(t)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("does nothing when no messages are pending", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return([]*domain.OutboxMessage{}, nil)

		err := useCase.ProcessMessages(ctx)
		require.NoError(t, err)
		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("increments retries on publish failure", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		sagaID := uuid.Must(uuid.NewV7())
		message := domain.New(sagaID, saga.MessageTypePaymentResponse, `{}`)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return([]*domain.OutboxMessage{message}, nil)
		publisher.On("Publish", ctx, saga.TopicPaymentResponse, sagaID.String(), []byte(`{}`)).
			Return(errors.New("broker unavailable"))
		outboxRepo.On("Update", ctx, message).Return(nil)

		err := useCase.ProcessMessages(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.OutboxMessageStatusStarted, message.Status)
		assert.Equal(t, 1, message.Retries)
		require.NotNil(t, message.LastError)
		assert.Equal(t, "broker unavailable", *message.LastError)
		assert.Nil(t, message.ProcessedAt)
	})

	t.Run("marks message failed after exhausting retries", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		sagaID := uuid.Must(uuid.NewV7())
		message := domain.New(sagaID, saga.MessageTypeApprovalRequest, `{}`)
		message.Retries = 2

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return([]*domain.OutboxMessage{message}, nil)
		publisher.On("Publish", ctx, saga.TopicApprovalRequest, sagaID.String(), []byte(`{}`)).
			Return(errors.New("broker unavailable"))
		outboxRepo.On("Update", ctx, message).Return(nil)

		err := useCase.ProcessMessages(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.OutboxMessageStatusFailed, message.Status)
		assert.Equal(t, 3, message.Retries)
	})

	t.Run("keeps processing the batch after one failed publish", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		firstSagaID := uuid.Must(uuid.NewV7())
		secondSagaID := uuid.Must(uuid.NewV7())
		first := domain.New(firstSagaID, saga.MessageTypePaymentRequest, `{"n":1}`)
		second := domain.New(secondSagaID, saga.MessageTypePaymentRequest, `{"n":2}`)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return([]*domain.OutboxMessage{first, second}, nil)
		publisher.On("Publish", ctx, saga.TopicPaymentRequest, firstSagaID.String(), []byte(`{"n":1}`)).
			Return(errors.New("broker unavailable"))
		publisher.On("Publish", ctx, saga.TopicPaymentRequest, secondSagaID.String(), []byte(`{"n":2}`)).
			Return(nil)
		outboxRepo.On("Update", ctx, first).Return(nil)
		outboxRepo.On("Update", ctx, second).Return(nil)

		err := useCase.ProcessMessages(ctx)
		require.NoError(t, err)

		assert.Equal(t, domain.OutboxMessageStatusStarted, first.Status)
		assert.Equal(t, domain.OutboxMessageStatusCompleted, second.Status)
	})

	t.Run("propagates claim error", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("ClaimPending", ctx, 100).Return(nil, errors.New("db error"))

		err := useCase.ProcessMessages(ctx)
		assert.EqualError(t, err, "db error")
	})
}

func TestOutboxUseCase_CleanupMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes finished messages past the retention window", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("DeleteFinishedBefore", ctx, mock.MatchedBy(func(cutoff time.Time) bool {
			expected := time.Now().Add(-72 * time.Hour)
			return cutoff.Sub(expected).Abs() < time.Minute
		})).Return(int64(42), nil)

		deleted, err := useCase.CleanupMessages(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(42), deleted)
	})

	t.Run("propagates delete error", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		txManager.On("WithTx", ctx, mock.Anything).Return(nil)
		outboxRepo.On("DeleteFinishedBefore", ctx, mock.Anything).Return(int64(0), errors.New("db error"))

		_, err := useCase.CleanupMessages(ctx)
		assert.EqualError(t, err, "db error")
	})
}

func TestOutboxUseCase_Start(t *testing.T) {
	t.Run("stops when the context is cancelled", func(t *testing.T) {
		txManager := new(MockTxManager)
		outboxRepo := new(MockOutboxMessageRepository)
		publisher := new(MockPublisher)
		useCase := NewOutboxUseCase(testConfig(), txManager, outboxRepo, publisher, nil, nil)

		txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil).Maybe()
		outboxRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.OutboxMessage{}, nil).Maybe()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := useCase.Start(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
