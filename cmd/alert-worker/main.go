package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pocketpilot/internal/amqp"
	"pocketpilot/internal/config"
	applog "pocketpilot/internal/log"
)

// alert-worker consumes budget alert messages and logs every breach.
// It is the integration point for notification channels (mail, chat).
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting alert worker", "queue", cfg.AMQPQueue)

	err = client.ConsumeBudgetAlerts(ctx, func(msg *amqp.BudgetAlertMessage) error {
		logger.Warn("Budget breach predicted",
			applog.FieldCategory, msg.Category,
			applog.FieldPredicted, msg.Predicted,
			applog.FieldBudget, msg.Budget,
			"timestamp", msg.Timestamp,
		)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Alert consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Alert worker stopped gracefully")
}
