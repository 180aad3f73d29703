package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	outboxUsecase "github.com/allisson/food-ordering-saga/internal/outbox/usecase"
)

// RunCleanupMessages deletes finished outbox messages older than the retention
// period. Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanupMessages(
	ctx context.Context,
	outboxUseCase outboxUsecase.UseCase,
	logger *slog.Logger,
	out io.Writer,
	retentionPeriod time.Duration,
	format string,
) error {
	logger.Info("cleaning finished outbox messages",
		slog.Duration("retention_period", retentionPeriod),
	)

	count, err := outboxUseCase.CleanupMessages(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up outbox messages: %w", err)
	}

	if format == "json" {
		outputCleanupJSON(out, count, retentionPeriod.String())
	} else {
		fmt.Fprintf(out, "Successfully deleted %d finished outbox message(s) older than %s\n",
			count, retentionPeriod)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}

// outputCleanupJSON outputs the result in JSON format for machine consumption.
func outputCleanupJSON(out io.Writer, count int64, retentionPeriod string) {
	result := map[string]interface{}{
		"count":            count,
		"retention_period": retentionPeriod,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
