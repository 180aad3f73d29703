package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/food-ordering-saga/internal/app"
	"github.com/allisson/food-ordering-saga/internal/config"
)

// RunRestaurantService starts the restaurant service: the consumer for
// approval requests, the outbox relay and the metrics server.
// Blocks until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunRestaurantService(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting restaurant service", slog.String("version", version))

	defer closeContainer(container, logger)

	consumer, err := container.RestaurantConsumer()
	if err != nil {
		return fmt.Errorf("failed to initialize restaurant consumer: %w", err)
	}

	outboxUseCase, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox use case: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	return runService(ctx, cfg, logger, serviceComponents{
		name:          "restaurant",
		consumer:      consumer,
		outboxUseCase: outboxUseCase,
		metricsServer: metricsServer,
	})
}
