package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Channel is the top-level delivery medium of a notification.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// MessageType further classifies SMS notifications.
type MessageType string

const (
	TypeTransactional MessageType = "transactional"
	TypePromotional   MessageType = "promotional"
	TypeOTP           MessageType = "otp"
)

// DeliveryStatus is the lifecycle state of a single item.
//
// PENDING is the construction default. The dispatcher pessimistically marks
// every item SEND_FAILED before attempting delivery, so a crash mid-send can
// never leave an item falsely reported as delivered. SENT and FAILED are
// terminal and set exclusively by the vendor adapter.
type DeliveryStatus string

const (
	StatusPending    DeliveryStatus = "PENDING"
	StatusSendFailed DeliveryStatus = "SEND_FAILED"
	StatusSent       DeliveryStatus = "SENT"
	StatusFailed     DeliveryStatus = "FAILED"
)

// Terminal reports whether s is a final state that must not be overwritten.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// DLTData carries the Indian DLT compliance identifiers required by some SMS
// operators for transactional routes.
type DLTData struct {
	PEID       string `json:"pe_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// Notification is one logical send request to one or more recipients over a
// single channel. It is built by the caller, handed to the dispatcher once,
// and never reused; its items are destructively marked during dispatch.
type Notification struct {
	ID          uuid.UUID   `json:"id"`
	Channel     Channel     `json:"channel"`
	MessageType MessageType `json:"message_type,omitempty"`

	// SMS metadata.
	SenderID string  `json:"sender_id,omitempty"`
	DLT      DLTData `json:"dlt,omitempty"`

	// Email metadata.
	FromEmail string `json:"from_email,omitempty"`
	Subject   string `json:"subject,omitempty"`

	Items []*Item `json:"items"`

	// OriginalItems is the dispatcher's snapshot of Items taken before any
	// mutation, kept for audit tooling. Not serialised to the queue.
	OriginalItems []*Item `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Item is one recipient's delivery unit within a Notification. It is created
// by the caller, mutated exclusively by the vendor adapter during send, and
// read-only afterwards.
type Item struct {
	Recipient string         `json:"recipient"`
	Message   string         `json:"message"`
	Status    DeliveryStatus `json:"status"`
	ExtID     string         `json:"ext_id,omitempty"`
	Error     string         `json:"error,omitempty"`

	// OTP subtype fields.
	OTP          string `json:"otp,omitempty"`
	TemplateName string `json:"template_name,omitempty"`

	// Email subtype fields.
	Subject   string            `json:"subject,omitempty"`
	CC        []string          `json:"cc,omitempty"`
	BCC       []string          `json:"bcc,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

// NewSMSNotification creates an empty SMS notification of the given subtype.
func NewSMSNotification(messageType MessageType, senderID string) *Notification {
	return &Notification{
		ID:          uuid.New(),
		Channel:     ChannelSMS,
		MessageType: messageType,
		SenderID:    senderID,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewEmailNotification creates an empty email notification.
func NewEmailNotification(fromEmail, subject string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		Channel:   ChannelEmail,
		FromEmail: fromEmail,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}
}

// AddItem appends an item and returns the notification for chaining.
func (n *Notification) AddItem(item *Item) *Notification {
	n.Items = append(n.Items, item)
	return n
}

// NewItem creates a pending item for the given recipient.
func NewItem(recipient, message string) *Item {
	return &Item{Recipient: recipient, Message: message, Status: StatusPending}
}

// NewOTPItem creates a pending item carrying a one-time password.
func NewOTPItem(phone, otp, message string) *Item {
	return &Item{Recipient: phone, Message: message, OTP: otp, Status: StatusPending}
}

// MarkSent records a successful delivery with the vendor-assigned id. Calls
// on an already-terminal item are ignored.
func (i *Item) MarkSent(extID string) {
	if i.Status.Terminal() {
		return
	}
	i.Status = StatusSent
	i.ExtID = extID
	i.Error = ""
}

// MarkFailed records a delivery failure. Calls on an already-terminal item
// are ignored.
func (i *Item) MarkFailed(reason string) {
	if i.Status.Terminal() {
		return
	}
	i.Status = StatusFailed
	i.Error = reason
}

// Domain errors
var (
	ErrConfiguration         = errors.New("invalid notification configuration")
	ErrUnsupportedCapability = errors.New("vendor does not support requested capability")
	ErrNotificationNotFound  = errors.New("notification not found")
)
