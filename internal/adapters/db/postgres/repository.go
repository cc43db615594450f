package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/ports"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Repository implements ports.NotificationRepository using PostgreSQL.
type Repository struct {
	db *sql.DB
}

// New opens a PostgreSQL connection and returns a Repository.
func New(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveNotification inserts a notification and all its items in one
// transaction. Item rows keep their slice index so the original ordering
// survives a round trip.
func (r *Repository) SaveNotification(ctx context.Context, n *domain.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertNotification = `
		INSERT INTO notifications
			(id, channel, message_type, sender_id, from_email, subject, pe_id, template_id, outbox_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, insertNotification,
		n.ID, n.Channel, n.MessageType, n.SenderID, n.FromEmail, n.Subject,
		n.DLT.PEID, n.DLT.TemplateID, ports.OutboxPending, n.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	const insertItem = `
		INSERT INTO notification_items
			(notification_id, idx, recipient, message, status, ext_id, error, otp, template_name, subject, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	stmt, err := tx.PrepareContext(ctx, insertItem)
	if err != nil {
		return fmt.Errorf("prepare insert item: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for i, item := range n.Items {
		_, err := stmt.ExecContext(ctx, n.ID, i,
			item.Recipient, item.Message, item.Status, item.ExtID, item.Error,
			item.OTP, item.TemplateName, item.Subject, now, now)
		if err != nil {
			return fmt.Errorf("exec insert item %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetNotification retrieves a notification with its items in original order.
func (r *Repository) GetNotification(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	const q = `
		SELECT id, channel, message_type, sender_id, from_email, subject, pe_id, template_id, created_at
		FROM notifications
		WHERE id = $1
	`
	n := &domain.Notification{}
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&n.ID, &n.Channel, &n.MessageType, &n.SenderID, &n.FromEmail, &n.Subject,
		&n.DLT.PEID, &n.DLT.TemplateID, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Items = items
	return n, nil
}

func (r *Repository) loadItems(ctx context.Context, id uuid.UUID) ([]*domain.Item, error) {
	const q = `
		SELECT recipient, message, status, COALESCE(ext_id,''), COALESCE(error,''), otp, template_name, subject
		FROM notification_items
		WHERE notification_id = $1
		ORDER BY idx ASC
	`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		item := &domain.Item{}
		var status string
		if err := rows.Scan(&item.Recipient, &item.Message, &status, &item.ExtID, &item.Error,
			&item.OTP, &item.TemplateName, &item.Subject); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Status = domain.DeliveryStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetPendingNotifications returns up to limit notifications still pending,
// oldest first, with their items.
func (r *Repository) GetPendingNotifications(ctx context.Context, limit int) ([]*domain.Notification, error) {
	const q = `
		SELECT id, channel, message_type, sender_id, from_email, subject, pe_id, template_id, created_at
		FROM notifications
		WHERE outbox_status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, q, ports.OutboxPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var list []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.Channel, &n.MessageType, &n.SenderID, &n.FromEmail, &n.Subject,
			&n.DLT.PEID, &n.DLT.TemplateID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, n := range list {
		items, err := r.loadItems(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		n.Items = items
	}
	return list, nil
}

// UpdateOutboxStatus transitions a notification's outbox status.
func (r *Repository) UpdateOutboxStatus(ctx context.Context, id uuid.UUID, status ports.OutboxStatus) error {
	const q = `UPDATE notifications SET outbox_status = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, q, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update outbox status: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// RecordOutcomes writes the terminal status, ext id and error of every item.
func (r *Repository) RecordOutcomes(ctx context.Context, n *domain.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const q = `
		UPDATE notification_items
		SET status = $1, ext_id = $2, error = $3, updated_at = $4
		WHERE notification_id = $5 AND idx = $6
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare update item: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for i, item := range n.Items {
		if _, err := stmt.ExecContext(ctx, item.Status, item.ExtID, item.Error, now, n.ID, i); err != nil {
			return fmt.Errorf("exec update item %d: %w", i, err)
		}
	}

	return tx.Commit()
}
