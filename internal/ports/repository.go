package ports

import (
	"context"

	"golang-notify-dispatch/internal/domain"

	"github.com/google/uuid"
)

// OutboxStatus is the queueing state of a stored notification, tracked
// separately from the per-item delivery statuses.
type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"    // Saved, not yet queued
	OutboxQueued     OutboxStatus = "queued"     // Published to the message queue
	OutboxDispatched OutboxStatus = "dispatched" // Pipeline ran; item outcomes recorded
)

// NotificationRepository defines persistence for notifications and their items.
type NotificationRepository interface {
	// SaveNotification persists a notification and all its items in one
	// transaction, with outbox status pending.
	SaveNotification(ctx context.Context, n *domain.Notification) error

	// GetNotification retrieves a notification with its items.
	GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// GetPendingNotifications returns up to limit notifications still pending.
	GetPendingNotifications(ctx context.Context, limit int) ([]*domain.Notification, error)

	// UpdateOutboxStatus transitions a notification's outbox status.
	UpdateOutboxStatus(ctx context.Context, id uuid.UUID, status OutboxStatus) error

	// RecordOutcomes writes the terminal status, ext_id and error of every
	// item of a dispatched notification.
	RecordOutcomes(ctx context.Context, n *domain.Notification) error
}
