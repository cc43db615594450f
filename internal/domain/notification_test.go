package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusSendFailed.Terminal())
	assert.True(t, StatusSent.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestItem_MarkSent(t *testing.T) {
	item := NewItem("9876543210", "hello")
	item.Error = "stale error"

	item.MarkSent("vendor-42")

	assert.Equal(t, StatusSent, item.Status)
	assert.Equal(t, "vendor-42", item.ExtID)
	assert.Empty(t, item.Error)
}

func TestItem_MarkFailed(t *testing.T) {
	item := NewItem("9876543210", "hello")

	item.MarkFailed("number blocked")

	assert.Equal(t, StatusFailed, item.Status)
	assert.Equal(t, "number blocked", item.Error)
}

func TestItem_TerminalStateIsNeverOverwritten(t *testing.T) {
	sent := NewItem("9876543210", "hello")
	sent.MarkSent("vendor-42")
	sent.MarkFailed("late failure")
	assert.Equal(t, StatusSent, sent.Status)
	assert.Equal(t, "vendor-42", sent.ExtID)
	assert.Empty(t, sent.Error)

	failed := NewItem("9876543210", "hello")
	failed.MarkFailed("number blocked")
	failed.MarkSent("vendor-42")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "number blocked", failed.Error)
	assert.Empty(t, failed.ExtID)
}

func TestNewSMSNotification(t *testing.T) {
	n := NewSMSNotification(TypeOTP, "SENDER")
	n.AddItem(NewOTPItem("9876543210", "4321", "your code")).
		AddItem(NewOTPItem("9876543211", "8765", "your code"))

	assert.Equal(t, ChannelSMS, n.Channel)
	assert.Equal(t, TypeOTP, n.MessageType)
	assert.Equal(t, "SENDER", n.SenderID)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", n.ID.String())
	assert.Len(t, n.Items, 2)
	assert.Equal(t, StatusPending, n.Items[0].Status)
	assert.Equal(t, "4321", n.Items[0].OTP)
}

func TestNewEmailNotification(t *testing.T) {
	n := NewEmailNotification("noreply@example.com", "Welcome")

	assert.Equal(t, ChannelEmail, n.Channel)
	assert.Equal(t, "noreply@example.com", n.FromEmail)
	assert.Equal(t, "Welcome", n.Subject)
	assert.Empty(t, n.MessageType)
}
