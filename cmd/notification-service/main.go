package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iyhunko/storefront-admin/internal/config"
	"github.com/iyhunko/storefront-admin/internal/logger"
	sqspkg "github.com/iyhunko/storefront-admin/internal/sqs"
)

func main() {
	conf := config.Load()
	handleErr("loading config", conf.RequireQueue())

	logger.InitJSONLogger(conf.DebugMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
	handleErr("creating SQS client", err)

	// nil handler logs every audit message
	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL, nil)

	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Consumer error", slog.Any("err", err))
		}
	}()

	slog.Info("Notification service started. Listening for audit messages...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")
	cancel()
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("Fatal error", slog.String("while", msg), slog.Any("err", err))
		os.Exit(1)
	}
}
