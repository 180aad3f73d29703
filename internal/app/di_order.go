package app

import (
	"fmt"
	"sync"

	"github.com/allisson/food-ordering-saga/internal/http"
	"github.com/allisson/food-ordering-saga/internal/messaging"
	orderHTTP "github.com/allisson/food-ordering-saga/internal/order/http"
	orderMessaging "github.com/allisson/food-ordering-saga/internal/order/messaging"
	orderRepository "github.com/allisson/food-ordering-saga/internal/order/repository"
	orderUsecase "github.com/allisson/food-ordering-saga/internal/order/usecase"
	"github.com/allisson/food-ordering-saga/internal/saga"
)

// orderComponents groups the order service dependencies inside the container.
type orderComponents struct {
	orderRepo      *orderRepository.PostgreSQLOrderRepository
	customerRepo   *orderRepository.PostgreSQLCustomerRepository
	restaurantRepo *orderRepository.PostgreSQLRestaurantRepository
	useCase        orderUsecase.UseCase
	httpServer     *http.Server
	consumer       *messaging.KafkaConsumer

	orderRepoInit      sync.Once
	customerRepoInit   sync.Once
	restaurantRepoInit sync.Once
	useCaseInit        sync.Once
	httpServerInit     sync.Once
	consumerInit       sync.Once
}

// OrderRepository returns the order repository instance.
func (c *Container) OrderRepository() (*orderRepository.PostgreSQLOrderRepository, error) {
	c.orderComponents.orderRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["orderRepo"] = fmt.Errorf("failed to get database for order repository: %w", err)
			return
		}
		c.orderComponents.orderRepo = orderRepository.NewPostgreSQLOrderRepository(db)
	})
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.orderRepo, nil
}

// CustomerRepository returns the customer repository instance.
func (c *Container) CustomerRepository() (*orderRepository.PostgreSQLCustomerRepository, error) {
	c.orderComponents.customerRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["customerRepo"] = fmt.Errorf("failed to get database for customer repository: %w", err)
			return
		}
		c.orderComponents.customerRepo = orderRepository.NewPostgreSQLCustomerRepository(db)
	})
	if storedErr, exists := c.initErrors["customerRepo"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.customerRepo, nil
}

// OrderRestaurantRepository returns the order-side restaurant projection repository.
func (c *Container) OrderRestaurantRepository() (*orderRepository.PostgreSQLRestaurantRepository, error) {
	c.orderComponents.restaurantRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["orderRestaurantRepo"] = fmt.Errorf("failed to get database for restaurant repository: %w", err)
			return
		}
		c.orderComponents.restaurantRepo = orderRepository.NewPostgreSQLRestaurantRepository(db)
	})
	if storedErr, exists := c.initErrors["orderRestaurantRepo"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.restaurantRepo, nil
}

// OrderUseCase returns the order use case instance.
func (c *Container) OrderUseCase() (orderUsecase.UseCase, error) {
	c.orderComponents.useCaseInit.Do(func() {
		useCase, err := c.initOrderUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = err
			return
		}
		c.orderComponents.useCase = useCase
	})
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.useCase, nil
}

// HTTPServer returns the order API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.orderComponents.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.orderComponents.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.httpServer, nil
}

// OrderConsumer returns the consumer that feeds payment and approval responses
// into the order saga.
func (c *Container) OrderConsumer() (*messaging.KafkaConsumer, error) {
	c.orderComponents.consumerInit.Do(func() {
		consumer, err := c.initOrderConsumer()
		if err != nil {
			c.initErrors["orderConsumer"] = err
			return
		}
		c.orderComponents.consumer = consumer
	})
	if storedErr, exists := c.initErrors["orderConsumer"]; exists {
		return nil, storedErr
	}
	return c.orderComponents.consumer, nil
}

// initOrderUseCase creates the order use case with all its dependencies.
func (c *Container) initOrderUseCase() (orderUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for order use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for order use case: %w", err)
	}

	customerRepo, err := c.CustomerRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get customer repository for order use case: %w", err)
	}

	restaurantRepo, err := c.OrderRestaurantRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant repository for order use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for order use case: %w", err)
	}

	inboxRepo, err := c.InboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for order use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for order use case: %w", err)
	}

	return orderUsecase.NewOrderUseCase(
		txManager,
		orderRepo,
		customerRepo,
		restaurantRepo,
		outboxRepo,
		inboxRepo,
		businessMetrics,
		c.Logger(),
	), nil
}

// initHTTPServer creates the order API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	orderUseCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	orderHandler := orderHTTP.NewOrderHandler(orderUseCase, c.Logger())
	return http.NewServer(c.config, orderHandler, metricsProvider, c.Logger()), nil
}

// initOrderConsumer creates the order service Kafka consumer.
func (c *Container) initOrderConsumer() (*messaging.KafkaConsumer, error) {
	orderUseCase, err := c.OrderUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get order use case for order consumer: %w", err)
	}

	handler := orderMessaging.NewHandler(orderUseCase, c.Logger())
	consumer, err := messaging.NewKafkaConsumer(messaging.ConsumerConfig{
		Brokers: c.config.BrokerList(),
		GroupID: c.config.KafkaConsumerGroup,
		Topics:  []string{saga.TopicPaymentResponse, saga.TopicApprovalResponse},
	}, handler, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create order consumer: %w", err)
	}
	return consumer, nil
}
