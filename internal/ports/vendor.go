package ports

import (
	"context"

	"golang-notify-dispatch/internal/domain"
)

// Vendor abstracts a configured third-party delivery provider.
//
// Send attempts delivery of the given items, which are always a subset of
// n.Items (the whole set for a direct dispatch, one chunk when the batch
// executor fans out). The adapter mutates each item in place to a terminal
// SENT or FAILED status; it returns an error only for failures that predate
// any per-item attempt (e.g. the provider rejected the whole request).
//
// Send must be safe to call concurrently from multiple batch tasks.
type Vendor interface {
	// Name returns the provider identifier (e.g. "twofactor").
	Name() string

	// SupportsOTP reports whether the vendor can deliver OTP notifications.
	SupportsOTP() bool

	// Send delivers the given items of n and records their outcomes.
	Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error
}
