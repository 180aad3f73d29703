// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/food-ordering-saga/cmd/app/commands"
	"github.com/allisson/food-ordering-saga/internal/app"
	"github.com/allisson/food-ordering-saga/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Food ordering saga services",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "order-service",
				Usage: "Start the order service (API, saga consumer and outbox relay)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunOrderService(ctx, version)
				},
			},
			{
				Name:  "payment-service",
				Usage: "Start the payment service (saga consumer and outbox relay)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunPaymentService(ctx, version)
				},
			},
			{
				Name:  "restaurant-service",
				Usage: "Start the restaurant approval service (saga consumer and outbox relay)",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRestaurantService(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					return commands.RunMigrations(container.Logger(), cfg.DBConnectionString)
				},
			},
			{
				Name:  "cleanup-messages",
				Usage: "Delete finished outbox messages older than the retention period",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					defer func() { _ = container.Shutdown(ctx) }()

					outboxUseCase, err := container.OutboxUseCase()
					if err != nil {
						return err
					}

					return commands.RunCleanupMessages(
						ctx,
						outboxUseCase,
						container.Logger(),
						commands.DefaultIO().Writer,
						cfg.MessageRetentionPeriod,
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
