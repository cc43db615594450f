package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/ports"

	"github.com/google/uuid"
)

// Dispatching is the minimal surface the service needs from the Client; it
// exists so tests can substitute a stub pipeline.
type Dispatching interface {
	Dispatcher(channel domain.Channel) (Dispatcher, error)
}

// Dispatcher is the pipeline surface consumed by the service.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification) (domain.DispatchResult, error)
}

// clientAdapter adapts *Client to the Dispatching interface.
type clientAdapter struct{ c *Client }

func (a clientAdapter) Dispatcher(channel domain.Channel) (Dispatcher, error) {
	return a.c.Dispatcher(channel)
}

// NotifyService orchestrates the outbox flow: accept and persist a
// notification, publish it to the queue, and run the dispatch pipeline when
// a worker picks it up.
type NotifyService struct {
	repo      ports.NotificationRepository
	publisher ports.NotificationPublisher
	pipeline  Dispatching
	log       *slog.Logger
}

// NewNotifyService wires the service with its dependencies.
func NewNotifyService(
	repo ports.NotificationRepository,
	publisher ports.NotificationPublisher,
	client *Client,
	log *slog.Logger,
) *NotifyService {
	return &NotifyService{repo: repo, publisher: publisher, pipeline: clientAdapter{client}, log: log}
}

// NewNotifyServiceWith is NewNotifyService with an arbitrary pipeline,
// used by tests.
func NewNotifyServiceWith(
	repo ports.NotificationRepository,
	publisher ports.NotificationPublisher,
	pipeline Dispatching,
	log *slog.Logger,
) *NotifyService {
	return &NotifyService{repo: repo, publisher: publisher, pipeline: pipeline, log: log}
}

// CreateNotification persists a notification and its items to the outbox.
func (s *NotifyService) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if err := s.repo.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}

	s.log.Info("notification created",
		"notification_id", n.ID, "channel", n.Channel, "items", len(n.Items))
	return nil
}

// GetNotification returns a stored notification with its items.
func (s *NotifyService) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return s.repo.GetNotification(ctx, id)
}

// PublishPending reads pending outbox notifications and publishes them to
// the queue. Called by the outbox-publisher binary on a poll interval.
func (s *NotifyService) PublishPending(ctx context.Context, batchSize int) (int, error) {
	pending, err := s.repo.GetPendingNotifications(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending notifications: %w", err)
	}

	published := 0
	for _, n := range pending {
		if err := s.repo.UpdateOutboxStatus(ctx, n.ID, ports.OutboxQueued); err != nil {
			s.log.Error("mark queued failed", "notification_id", n.ID, "err", err)
			continue
		}

		if err := s.publisher.Publish(ctx, n); err != nil {
			// Roll back to pending so the next poll retries it.
			_ = s.repo.UpdateOutboxStatus(ctx, n.ID, ports.OutboxPending)
			s.log.Error("publish failed", "notification_id", n.ID, "err", err)
			continue
		}

		published++
	}

	return published, nil
}

// DispatchNow runs the pipeline synchronously for a notification without
// touching the outbox. The returned error is non-nil only for fail-fast
// configuration or capability violations.
func (s *NotifyService) DispatchNow(ctx context.Context, n *domain.Notification) (domain.DispatchResult, error) {
	d, err := s.pipeline.Dispatcher(n.Channel)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	return d.Dispatch(ctx, n)
}

// ProcessNotification runs the pipeline for a queued notification and
// records the per-item outcomes. Called by the dispatch-worker for each job
// it dequeues.
//
// Capability and configuration errors are terminal for the job: the items
// are marked failed and the outcome is recorded rather than requeued, since
// redelivery cannot fix configuration.
func (s *NotifyService) ProcessNotification(ctx context.Context, n *domain.Notification) error {
	result, err := s.DispatchNow(ctx, n)
	if err != nil {
		s.log.Error("dispatch rejected", "notification_id", n.ID, "err", err)
		for _, item := range n.Items {
			item.MarkFailed(err.Error())
		}
	} else if !result.Success {
		s.log.Warn("dispatch did not complete",
			"notification_id", n.ID, "reason", result.Reason, "error", result.Error)
	}

	if err := s.repo.RecordOutcomes(ctx, n); err != nil {
		return fmt.Errorf("record outcomes: %w", err)
	}

	if err := s.repo.UpdateOutboxStatus(ctx, n.ID, ports.OutboxDispatched); err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}

	s.log.Info("notification processed",
		"notification_id", n.ID, "sent", result.SentCount(), "total", len(n.Items))
	return nil
}
