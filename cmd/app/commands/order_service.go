package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/food-ordering-saga/internal/app"
	"github.com/allisson/food-ordering-saga/internal/config"
)

// RunOrderService starts the order service: the order API, the consumer for
// payment and approval responses, the outbox relay and the metrics server.
// Blocks until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunOrderService(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting order service", slog.String("version", version))

	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	consumer, err := container.OrderConsumer()
	if err != nil {
		return fmt.Errorf("failed to initialize order consumer: %w", err)
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
		name:          "order",
		consumer:      consumer,
		outboxUseCase: outboxUseCase,
		httpServer:    server,
		metricsServer: metricsServer,
	})
}
