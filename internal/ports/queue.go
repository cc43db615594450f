package ports

import (
	"context"

	"golang-notify-dispatch/internal/domain"
)

// NotificationPublisher publishes dispatch jobs to the message queue.
type NotificationPublisher interface {
	// Publish sends a single notification to the queue for dispatch.
	Publish(ctx context.Context, n *domain.Notification) error
}

// NotificationConsumer consumes dispatch jobs from the message queue.
type NotificationConsumer interface {
	// Consume starts delivery of queued notifications; each is passed to the
	// handler. Blocks until ctx is cancelled or a fatal error occurs.
	Consume(ctx context.Context, handler func(ctx context.Context, n *domain.Notification) error) error
}
