package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/food-ordering-saga/internal/config"
	"github.com/allisson/food-ordering-saga/internal/http"
	"github.com/allisson/food-ordering-saga/internal/messaging"
	outboxUsecase "github.com/allisson/food-ordering-saga/internal/outbox/usecase"
)

// serviceComponents holds the long-running parts of one saga service.
// httpServer is nil for the services without an API surface.
type serviceComponents struct {
	name          string
	consumer      *messaging.KafkaConsumer
	outboxUseCase outboxUsecase.UseCase
	httpServer    *http.Server
	metricsServer *http.MetricsServer
}

// runService starts the consumer, outbox relay and servers of one service and
// blocks until a shutdown signal arrives or one of them fails. The consumer
// and relay stop through context cancellation; the servers get a grace period
// bounded by DBConnMaxLifetime.
func runService(ctx context.Context, cfg *config.Config, logger *slog.Logger, components serviceComponents) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := components.consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consumer error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := components.outboxUseCase.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox relay error: %w", err)
		}
		return nil
	})

	if components.httpServer != nil {
		g.Go(func() error {
			if err := components.httpServer.Start(gctx); err != nil {
				return fmt.Errorf("api server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
			defer shutdownCancel()
			if err := components.httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("api server shutdown: %w", err)
			}
			return nil
		})
	}

	if components.metricsServer != nil {
		g.Go(func() error {
			if err := components.metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
			defer shutdownCancel()
			if err := components.metricsServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("metrics server shutdown: %w", err)
			}
			return nil
		})
	}

	logger.Info("service started", slog.String("service", components.name))

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", slog.Any("error", err))
		return err
	}

	logger.Info("service stopped", slog.String("service", components.name))
	return nil
}
