package app

import (
	"fmt"
	"sync"

	"github.com/allisson/food-ordering-saga/internal/messaging"
	paymentMessaging "github.com/allisson/food-ordering-saga/internal/payment/messaging"
	paymentRepository "github.com/allisson/food-ordering-saga/internal/payment/repository"
	paymentUsecase "github.com/allisson/food-ordering-saga/internal/payment/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// paymentComponents groups the payment service dependencies inside the container.
type paymentComponents struct {
	paymentRepo       *paymentRepository.PostgreSQLPaymentRepository
	creditEntryRepo   *paymentRepository.PostgreSQLCreditEntryRepository
	creditHistoryRepo *paymentRepository.PostgreSQLCreditHistoryRepository
	useCase           paymentUsecase.UseCase
	consumer          *messaging.KafkaConsumer

	paymentRepoInit       sync.Once
	creditEntryRepoInit   sync.Once
	creditHistoryRepoInit sync.Once
	useCaseInit           sync.Once
	consumerInit          sync.Once
}

// PaymentRepository returns the payment repository instance.
func (c *Container) PaymentRepository() (*paymentRepository.PostgreSQLPaymentRepository, error) {
	c.paymentComponents.paymentRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["paymentRepo"] = fmt.Errorf("failed to get database for payment repository: %w", err)
			return
		}
		c.paymentComponents.paymentRepo = paymentRepository.NewPostgreSQLPaymentRepository(db)
	})
	if storedErr, exists := c.initErrors["paymentRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentComponents.paymentRepo, nil
}

// CreditEntryRepository returns the credit entry repository instance.
func (c *Container) CreditEntryRepository() (*paymentRepository.PostgreSQLCreditEntryRepository, error) {
	c.paymentComponents.creditEntryRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["creditEntryRepo"] = fmt.Errorf("failed to get database for credit entry repository: %w", err)
			return
		}
		c.paymentComponents.creditEntryRepo = paymentRepository.NewPostgreSQLCreditEntryRepository(db)
	})
	if storedErr, exists := c.initErrors["creditEntryRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentComponents.creditEntryRepo, nil
}

// CreditHistoryRepository returns the credit history repository instance.
func (c *Container) CreditHistoryRepository() (*paymentRepository.PostgreSQLCreditHistoryRepository, error) {
	c.paymentComponents.creditHistoryRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["creditHistoryRepo"] = fmt.Errorf("failed to get database for credit history repository: %w", err)
			return
		}
		c.paymentComponents.creditHistoryRepo = paymentRepository.NewPostgreSQLCreditHistoryRepository(db)
	})
	if storedErr, exists := c.initErrors["creditHistoryRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentComponents.creditHistoryRepo, nil
}

// PaymentUseCase returns the payment use case instance.
func (c *Container) PaymentUseCase() (paymentUsecase.UseCase, error) {
	c.paymentComponents.useCaseInit.Do(func() {
		useCase, err := c.initPaymentUseCase()
		if err != nil {
			c.initErrors["paymentUseCase"] = err
			return
		}
		c.paymentComponents.useCase = useCase
	})
	if storedErr, exists := c.initErrors["paymentUseCase"]; exists {
		return nil, storedErr
	}
	return c.paymentComponents.useCase, nil
}

// PaymentConsumer returns the consumer that feeds payment requests into the
// payment service.
func (c *Container) PaymentConsumer() (*messaging.KafkaConsumer, error) {
	c.paymentComponents.consumerInit.Do(func() {
		consumer, err := c.initPaymentConsumer()
		if err != nil {
			c.initErrors["paymentConsumer"] = err
			return
		}
		c.paymentComponents.consumer = consumer
	})
	if storedErr, exists := c.initErrors["paymentConsumer"]; exists {
		return nil, storedErr
	}
	return c.paymentComponents.consumer, nil
}

// initPaymentUseCase creates the payment use case with all its dependencies.
func (c *Container) initPaymentUseCase() (paymentUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for payment use case: %w", err)
	}

	paymentRepo, err := c.PaymentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment repository for payment use case: %w", err)
	}

	creditEntryRepo, err := c.CreditEntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get credit entry repository for payment use case: %w", err)
	}

	creditHistoryRepo, err := c.CreditHistoryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get credit history repository for payment use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for payment use case: %w", err)
	}

	inboxRepo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for payment use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for payment use case: %w", err)
	}

	return paymentUsecase.NewPaymentUseCase(
		txManager,
		paymentRepo,
		creditEntryRepo,
		creditHistoryRepo,
		outboxRepo,
		inboxRepo,
		nil,
		businessMetrics,
		c.Logger(),
	), nil
}

// initPaymentConsumer creates the payment service Kafka consumer.
func (c *Container) initPaymentConsumer() (*messaging.KafkaConsumer, error) {
	paymentUseCase, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for payment consumer: %w", err)
	}

	handler := paymentMessaging.NewHandler(paymentUseCase, c.Logger())
	consumer, err := messaging.NewKafkaConsumer(messaging.ConsumerConfig{
		Brokers: c.config.BrokerList(),
		GroupID: c.config.KafkaConsumerGroup,
		Topics:  []string{saga.TopicPaymentRequest},
	}, handler, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create payment consumer: %w", err)
	}
	return consumer, nil
}
