package postgres

import (
	"time"

	"github.com/google/uuid"
)

// NotificationRow and NotificationItemRow are the gorm models for the
// migrate binary. The repository itself speaks database/sql; these exist so
// AutoMigrate and the hand-written queries agree on one schema.

type NotificationRow struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Channel      string    `gorm:"size:16;not null"`
	MessageType  string    `gorm:"size:32"`
	SenderID     string    `gorm:"size:32"`
	FromEmail    string    `gorm:"size:255"`
	Subject      string
	PEID         string `gorm:"column:pe_id;size:64"`
	TemplateID   string `gorm:"size:64"`
	OutboxStatus string `gorm:"size:16;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (NotificationRow) TableName() string { return "notifications" }

type NotificationItemRow struct {
	NotificationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Idx            int       `gorm:"primaryKey"`
	Recipient      string    `gorm:"size:255;not null"`
	Message        string
	Status         string `gorm:"size:16;not null"`
	ExtID          string `gorm:"size:128"`
	Error          string
	OTP            string `gorm:"size:16"`
	TemplateName   string `gorm:"size:128"`
	Subject        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificationItemRow) TableName() string { return "notification_items" }
