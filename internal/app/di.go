// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/food-ordering-saga/internal/config"
	"github.com/allisson/food-ordering-saga/internal/database"
	"github.com/allisson/food-ordering-saga/internal/http"
	inboxRepository "github.com/allisson/food-ordering-saga/internal/inbox/repository"
	"github.com/allisson/food-ordering-saga/internal/messaging"
	"github.com/allisson/food-ordering-saga/internal/metrics"
	outboxRepository "github.com/allisson/food-ordering-saga/internal/outbox/repository"
	outboxUsecase "github.com/allisson/food-ordering-saga/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
// One container backs one service process; only the components that service asks
// for are ever initialized.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	publisher       *messaging.KafkaPublisher

	// Managers
	txManager database.TxManager

	// Shared repositories
	outboxRepo *outboxRepository.PostgreSQLOutboxMessageRepository
	inboxRepo  *inboxRepository.PostgreSQLInboxMessageRepository

	// Use cases
	outboxUseCase outboxUsecase.UseCase

	// Servers and workers
	metricsServer *http.MetricsServer

	// Order service components (see di_order.go)
	orderComponents orderComponents

	// Payment service components (see di_payment.go)
	paymentComponents paymentComponents

	// Restaurant service components (see di_restaurant.go)
	restaurantComponents restaurantComponents

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	publisherInit       sync.Once
	outboxRepoInit      sync.Once
	inboxRepoInit       sync.Once
	outboxUseCaseInit   sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		txManager, err := c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = txManager
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider instance.
// It returns nil when metrics are disabled in the configuration.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It falls back to a
// no-op recorder when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		businessMetrics, err := c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		c.businessMetrics = businessMetrics
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Publisher returns the Kafka publisher used by the outbox relay.
func (c *Container) Publisher() (*messaging.KafkaPublisher, error) {
	c.publisherInit.Do(func() {
		publisher, err := c.initPublisher()
		if err != nil {
			c.initErrors["publisher"] = err
			return
		}
		c.publisher = publisher
	})
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// OutboxRepository returns the outbox message repository instance.
func (c *Container) OutboxRepository() (*outboxRepository.PostgreSQLOutboxMessageRepository, error) {
	c.outboxRepoInit.Do(func() {
		repo, err := c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
			return
		}
		c.outboxRepo = repo
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// InboxRepository returns the inbox message repository instance.
func (c *Container) InboxRepository() (*inboxRepository.PostgreSQLInboxMessageRepository, error) {
	c.inboxRepoInit.Do(func() {
		repo, err := c.initInboxRepository()
		if err != nil {
			c.initErrors["inboxRepo"] = err
			return
		}
		c.inboxRepo = repo
	})
	if storedErr, exists := c.initErrors["inboxRepo"]; exists {
		return nil, storedErr
	}
	return c.inboxRepo, nil
}

// OutboxUseCase returns the outbox relay use case instance.
func (c *Container) OutboxUseCase() (outboxUsecase.UseCase, error) {
	c.outboxUseCaseInit.Do(func() {
		useCase, err := c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
			return
		}
		c.outboxUseCase = useCase
	})
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

// MetricsServer returns the Prometheus metrics server instance.
// It returns nil when metrics are disabled in the configuration.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
			return
		}
		c.metricsServer = http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Stop inbound consumers first so no new work arrives mid-shutdown
	if c.orderComponents.consumer != nil {
		if err := c.orderComponents.consumer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("order consumer close: %w", err))
		}
	}
	if c.paymentComponents.consumer != nil {
		if err := c.paymentComponents.consumer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("payment consumer close: %w", err))
		}
	}
	if c.restaurantComponents.consumer != nil {
		if err := c.restaurantComponents.consumer.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("restaurant consumer close: %w", err))
		}
	}

	if c.orderComponents.httpServer != nil {
		if err := c.orderComponents.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("publisher close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             "postgres",
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initPublisher creates the Kafka publisher.
func (c *Container) initPublisher() (*messaging.KafkaPublisher, error) {
	publisher, err := messaging.NewKafkaPublisher(messaging.PublisherConfig{
		Brokers:      c.config.BrokerList(),
		MaxRetries:   c.config.KafkaProducerMaxRetries,
		RetryBackoff: c.config.KafkaProducerRetryBackoff,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return publisher, nil
}

// initOutboxRepository creates the outbox message repository instance.
func (c *Container) initOutboxRepository() (*outboxRepository.PostgreSQLOutboxMessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}
	return outboxRepository.NewPostgreSQLOutboxMessageRepository(db), nil
}

// initInboxRepository creates the inbox message repository instance.
func (c *Container) initInboxRepository() (*inboxRepository.PostgreSQLInboxMessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for inbox repository: %w", err)
	}
	return inboxRepository.NewPostgreSQLInboxMessageRepository(db), nil
}

// initOutboxUseCase creates the outbox relay use case with all its dependencies.
func (c *Container) initOutboxUseCase() (outboxUsecase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	publisher, err := c.Publisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for outbox use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}

	useCaseConfig := outboxUsecase.Config{
		Interval:        c.config.OutboxRelayInterval,
		BatchSize:       c.config.OutboxBatchSize,
		MaxRetries:      c.config.OutboxMaxRetries,
		RetentionPeriod: c.config.MessageRetentionPeriod,
	}

	return outboxUsecase.NewOutboxUseCase(useCaseConfig, txManager, outboxRepo, publisher, businessMetrics, c.Logger()), nil
}
