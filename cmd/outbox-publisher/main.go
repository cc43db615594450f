package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang-notify-dispatch/internal/adapters/db/postgres"
	"golang-notify-dispatch/internal/adapters/queue/rabbitmq"
	"golang-notify-dispatch/internal/app"
	"golang-notify-dispatch/internal/config"
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

	// ── Application service ──────────────────────────────────────────────────
	client := app.NewClient(conf, log)
	svc := app.NewNotifyService(repo, publisher, client, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(conf.OutboxPollSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("outbox-publisher started", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down outbox-publisher")
			return

		case <-ticker.C:
			n, err := svc.PublishPending(ctx, 100)
			if err != nil {
				log.Error("publish pending notifications", "err", err)
				continue
			}
			if n > 0 {
				log.Info("published pending notifications", "count", n)
			}
		}
	}
}
