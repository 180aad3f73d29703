package app

import (
	"fmt"
	"sync"

	"github.com/allisson/food-ordering-saga/internal/messaging"
	restaurantMessaging "github.com/allisson/food-ordering-saga/internal/restaurant/messaging"
	restaurantRepository "github.com/allisson/food-ordering-saga/internal/restaurant/repository"
	restaurantUsecase "github.com/allisson/food-ordering-saga/internal/restaurant/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// restaurantComponents groups the restaurant service dependencies inside the container.
type restaurantComponents struct {
	approvalRepo   *restaurantRepository.PostgreSQLOrderApprovalRepository
	restaurantRepo *restaurantRepository.PostgreSQLRestaurantRepository
	useCase        restaurantUsecase.UseCase
	consumer       *messaging.KafkaConsumer

	approvalRepoInit   sync.Once
	restaurantRepoInit sync.Once
	useCaseInit        sync.Once
	consumerInit       sync.Once
}

// OrderApprovalRepository returns the order approval repository instance.
func (c *Container) OrderApprovalRepository() (*restaurantRepository.PostgreSQLOrderApprovalRepository, error) {
	c.restaurantComponents.approvalRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["approvalRepo"] = fmt.Errorf("failed to get database for approval repository: %w", err)
			return
		}
		c.restaurantComponents.approvalRepo = restaurantRepository.NewPostgreSQLOrderApprovalRepository(db)
	})
	if storedErr, exists := c.initErrors["approvalRepo"]; exists {
		return nil, storedErr
	}
	return c.restaurantComponents.approvalRepo, nil
}

// RestaurantRepository returns the restaurant repository instance.
func (c *Container) RestaurantRepository() (*restaurantRepository.PostgreSQLRestaurantRepository, error) {
	c.restaurantComponents.restaurantRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["restaurantRepo"] = fmt.Errorf("failed to get database for restaurant repository: %w", err)
			return
		}
		c.restaurantComponents.restaurantRepo = restaurantRepository.NewPostgreSQLRestaurantRepository(db)
	})
	if storedErr, exists := c.initErrors["restaurantRepo"]; exists {
		return nil, storedErr
	}
	return c.restaurantComponents.restaurantRepo, nil
}

// RestaurantUseCase returns the restaurant use case instance.
func (c *Container) RestaurantUseCase() (restaurantUsecase.UseCase, error) {
	c.restaurantComponents.useCaseInit.Do(func() {
		useCase, err := c.initRestaurantUseCase()
		if err != nil {
			c.initErrors["restaurantUseCase"] = err
			return
		}
		c.restaurantComponents.useCase = useCase
	})
	if storedErr, exists := c.initErrors["restaurantUseCase"]; exists {
		return nil, storedErr
	}
	return c.restaurantComponents.useCase, nil
}

// RestaurantConsumer returns the consumer that feeds approval requests into
// the restaurant service.
func (c *Container) RestaurantConsumer() (*messaging.KafkaConsumer, error) {
	c.restaurantComponents.consumerInit.Do(func() {
		consumer, err := c.initRestaurantConsumer()
		if err != nil {
			c.initErrors["restaurantConsumer"] = err
			return
		}
		c.restaurantComponents.consumer = consumer
	})
	if storedErr, exists := c.initErrors["restaurantConsumer"]; exists {
		return nil, storedErr
	}
	return c.restaurantComponents.consumer, nil
}

// initRestaurantUseCase creates the restaurant use case with all its dependencies.
func (c *Container) initRestaurantUseCase() (restaurantUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for restaurant use case: %w", err)
	}

	approvalRepo, err := c.OrderApprovalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get approval repository for restaurant use case: %w", err)
	}

	restaurantRepo, err := c.RestaurantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant repository for restaurant use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for restaurant use case: %w", err)
	}

	inboxRepo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for restaurant use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for restaurant use case: %w", err)
	}

	return restaurantUsecase.NewRestaurantUseCase(
		txManager,
		approvalRepo,
		restaurantRepo,
		outboxRepo,
		inboxRepo,
		businessMetrics,
		c.Logger(),
	), nil
}

// initRestaurantConsumer creates the restaurant service Kafka consumer.
func (c *Container) initRestaurantConsumer() (*messaging.KafkaConsumer, error) {
	restaurantUseCase, err := c.RestaurantUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant use case for restaurant consumer: %w", err)
	}

	handler := restaurantMessaging.NewHandler(restaurantUseCase, c.Logger())
	consumer, err := messaging.NewKafkaConsumer(messaging.ConsumerConfig{
		Brokers: c.config.BrokerList(),
		GroupID: c.config.KafkaConsumerGroup,
		Topics:  []string{saga.TopicApprovalRequest},
	}, handler, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create restaurant consumer: %w", err)
	}
	return consumer, nil
}
