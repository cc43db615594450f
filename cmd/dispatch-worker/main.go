package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang-notify-dispatch/internal/adapters/db/postgres"
	"golang-notify-dispatch/internal/adapters/queue/rabbitmq"
	"golang-notify-dispatch/internal/app"
	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	conf, err := config.Load()
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	// ── Adapters ─────────────────────────────────────────────────────────────
	repo, err := postgres.New(conf.DatabaseURL)
	if err != nil {
		log.Error("connect postgres", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	publisher, err := rabbitmq.NewPublisher(conf.AMQPURL)
	if err != nil {
		log.Error("connect rabbitmq publisher", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	consumer, err := rabbitmq.NewConsumer(conf.AMQPURL, log)
	if err != nil {
		log.Error("connect rabbitmq consumer", "err", err)
		os.Exit(1)
	}
	defer consumer.Close()

	// ── Application service ──────────────────────────────────────────────────
	client := app.NewClient(conf, log)
	svc := app.NewNotifyService(repo, publisher, client, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("dispatch-worker started")

	if err := consumer.Consume(ctx, func(ctx context.Context, n *domain.Notification) error {
		return svc.ProcessNotification(ctx, n)
	}); err != nil && ctx.Err() == nil {
		log.Error("consumer error", "err", err)
		os.Exit(1)
	}

	log.Info("shutting down dispatch-worker")
}
