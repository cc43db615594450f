package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang-notify-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyVendor records every Send call and marks items according to behave;
// the default marks everything SENT.
type spyVendor struct {
	name        string
	supportsOTP bool
	behave      func(n *domain.Notification, items []*domain.Item) error

	mu      sync.Mutex
	calls   int
	batches [][]*domain.Item
}

func (s *spyVendor) Name() string      { return s.name }
func (s *spyVendor) SupportsOTP() bool { return s.supportsOTP }

func (s *spyVendor) Send(ctx context.Context, n *domain.Notification, items []*domain.Item) error {
	s.mu.Lock()
	s.calls++
	s.batches = append(s.batches, items)
	s.mu.Unlock()

	if s.behave != nil {
		return s.behave(n, items)
	}
	for _, item := range items {
		item.MarkSent("ext-1")
	}
	return nil
}

func (s *spyVendor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestDispatcher(vendor *spyVendor, batchSize, maxConcurrent int) *Dispatcher {
	return New(vendor, NewExecutor(batchSize, maxConcurrent, testLogger()), testLogger())
}

func smsNotification(count int) *domain.Notification {
	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	for _, item := range makeItems(count) {
		n.AddItem(item)
	}
	return n
}

func TestDispatch_AllSent(t *testing.T) {
	vendor := &spyVendor{name: "spy", supportsOTP: true}
	d := newTestDispatcher(vendor, 1000, 4)

	n := smsNotification(3)
	result, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "success", result.ExtID)
	assert.Equal(t, 3, result.SentCount())
	require.Len(t, result.Items, 3)
	for _, ir := range result.Items {
		assert.Equal(t, domain.StatusSent, ir.Status)
		assert.Equal(t, "ext-1", ir.ExtID)
	}
	assert.Equal(t, 1, vendor.callCount())
}

func TestDispatch_PartialFailure(t *testing.T) {
	vendor := &spyVendor{name: "spy", behave: func(n *domain.Notification, items []*domain.Item) error {
		items[0].MarkFailed("number blocked")
		for _, item := range items[1:] {
			item.MarkSent("ext-1")
		}
		return nil
	}}
	d := newTestDispatcher(vendor, 1000, 4)

	result, err := d.Dispatch(context.Background(), smsNotification(3))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "batch not sent", result.ExtID)
	assert.Equal(t, 2, result.SentCount())
	assert.Equal(t, domain.StatusFailed, result.Items[0].Status)
	assert.Equal(t, "number blocked", result.Items[0].Error)
}

func TestDispatch_SafetyCheckRejectsBeforeAnyCall(t *testing.T) {
	vendor := &spyVendor{name: "spy"}
	d := newTestDispatcher(vendor, 1000, 4)

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	n.AddItem(domain.NewItem("9876543210", "hello"))
	n.AddItem(domain.NewItem("bogus", "hello"))

	result, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "failed safety check", result.Reason)
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, vendor.callCount())

	// Items carry the pessimistic marker, never a delivered state.
	for _, item := range n.Items {
		assert.Equal(t, domain.StatusSendFailed, item.Status)
	}
}

func TestDispatch_OTPAgainstIncapableVendor(t *testing.T) {
	vendor := &spyVendor{name: "spy", supportsOTP: false}
	d := newTestDispatcher(vendor, 1000, 4)

	n := domain.NewSMSNotification(domain.TypeOTP, "SENDER")
	n.AddItem(domain.NewOTPItem("9876543210", "4321", "your code"))

	_, err := d.Dispatch(context.Background(), n)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
	assert.Equal(t, 0, vendor.callCount())
}

func TestDispatch_VendorErrorBecomesResult(t *testing.T) {
	vendor := &spyVendor{name: "spy", behave: func(n *domain.Notification, items []*domain.Item) error {
		return errors.New("connection refused")
	}}
	d := newTestDispatcher(vendor, 1000, 4)

	result, err := d.Dispatch(context.Background(), smsNotification(2))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "connection refused", result.Error)
}

func TestDispatch_VendorPanicIsContained(t *testing.T) {
	vendor := &spyVendor{name: "spy", behave: func(n *domain.Notification, items []*domain.Item) error {
		panic("nil map write")
	}}
	d := newTestDispatcher(vendor, 1000, 4)

	result, err := d.Dispatch(context.Background(), smsNotification(2))

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "dispatch panic")
}

func TestDispatch_LargeNotificationIsBatched(t *testing.T) {
	vendor := &spyVendor{name: "spy"}
	d := newTestDispatcher(vendor, 10, 4)

	n := smsNotification(25)
	result, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "success", result.ExtID)
	assert.Equal(t, 25, result.SentCount())
	assert.Equal(t, 3, vendor.callCount())

	// Every item is covered by exactly one batch.
	seen := make(map[*domain.Item]int)
	for _, batch := range vendor.batches {
		for _, item := range batch {
			seen[item]++
		}
	}
	require.Len(t, seen, 25)
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestDispatch_FailedBatchDoesNotCancelSiblings(t *testing.T) {
	vendor := &spyVendor{name: "spy", behave: func(n *domain.Notification, items []*domain.Item) error {
		if items[0] == n.Items[0] {
			return errors.New("gateway down")
		}
		for _, item := range items {
			item.MarkSent("ext-1")
		}
		return nil
	}}
	d := newTestDispatcher(vendor, 10, 4)

	n := smsNotification(25)
	result, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "batch not sent", result.ExtID)
	assert.Equal(t, 15, result.SentCount())

	for i, item := range n.Items {
		if i < 10 {
			assert.Equal(t, domain.StatusFailed, item.Status, "item %d", i)
		} else {
			assert.Equal(t, domain.StatusSent, item.Status, "item %d", i)
		}
	}
}

func TestDispatch_SnapshotsOriginalItems(t *testing.T) {
	vendor := &spyVendor{name: "spy"}
	d := newTestDispatcher(vendor, 1000, 4)

	n := smsNotification(3)
	_, err := d.Dispatch(context.Background(), n)

	require.NoError(t, err)
	require.Len(t, n.OriginalItems, 3)
	for i := range n.Items {
		assert.Same(t, n.Items[i], n.OriginalItems[i])
	}
}
