// Package dispatch implements the core pipeline: safety check, vendor
// invocation (direct or batched) and per-item result aggregation, with the
// dispatcher acting as the failure-isolation boundary.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang-notify-dispatch/internal/domain"
	"golang-notify-dispatch/internal/ports"
)

// Dispatcher orchestrates validate → send → aggregate against a single
// vendor. It does not retry, does not fail over to a lower-priority vendor,
// and guarantees no ordering across recipients.
type Dispatcher struct {
	vendor ports.Vendor
	exec   *Executor
	log    *slog.Logger
}

// New wires a Dispatcher with its vendor and batch executor.
func New(vendor ports.Vendor, exec *Executor, log *slog.Logger) *Dispatcher {
	return &Dispatcher{vendor: vendor, exec: exec, log: log}
}

// Vendor returns the vendor this dispatcher delivers through.
func (d *Dispatcher) Vendor() ports.Vendor { return d.vendor }

// Dispatch runs the pipeline for one notification and always produces a
// structured result: validation rejections surface as Success=false with a
// Reason, and any unexpected failure during send or aggregation is contained
// and surfaces as Success=false with an Error.
//
// The only condition reported as a Go error is the fail-fast capability
// violation: an OTP notification against a vendor whose SupportsOTP is false,
// detected before any network call.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) (domain.DispatchResult, error) {
	// Snapshot before any mutation, for audit tooling.
	n.OriginalItems = append([]*domain.Item(nil), n.Items...)

	// Pessimistic marker: if the vendor call dies without touching an item,
	// that item must not read as delivered.
	for _, item := range n.Items {
		item.Status = domain.StatusSendFailed
	}

	if !SafetyCheck(n) {
		d.log.Warn("notification failed safety check",
			"notification_id", n.ID, "channel", n.Channel, "items", len(n.Items))
		return domain.DispatchResult{Success: false, Reason: "failed safety check"}, nil
	}

	if n.MessageType == domain.TypeOTP && !d.vendor.SupportsOTP() {
		return domain.DispatchResult{}, fmt.Errorf("%w: vendor %q cannot deliver otp",
			domain.ErrUnsupportedCapability, d.vendor.Name())
	}

	return d.run(ctx, n), nil
}

// run invokes the vendor and aggregates the outcome. It is the containment
// boundary: panics and errors become an in-band result, never an escape.
func (d *Dispatcher) run(ctx context.Context, n *domain.Notification) (result domain.DispatchResult) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("dispatch panicked", "notification_id", n.ID, "err", r)
			result = domain.DispatchResult{Success: false, Error: fmt.Sprintf("dispatch panic: %v", r)}
		}
	}()

	d.log.Info("dispatching notification",
		"notification_id", n.ID, "channel", n.Channel, "vendor", d.vendor.Name(), "items", len(n.Items))

	if err := d.send(ctx, n); err != nil {
		d.log.Error("vendor send failed", "notification_id", n.ID, "vendor", d.vendor.Name(), "err", err)
		return domain.DispatchResult{Success: false, Error: err.Error()}
	}

	return d.aggregate(n)
}

// send delivers directly for small notifications and through the batch
// executor once the item count exceeds the configured batch size.
func (d *Dispatcher) send(ctx context.Context, n *domain.Notification) error {
	if len(n.Items) <= d.exec.BatchSize {
		return d.vendor.Send(ctx, n, n.Items)
	}

	chunks := d.exec.Partition(n.Items)
	d.exec.Execute(ctx, chunks, func(ctx context.Context, items []*domain.Item) error {
		return d.vendor.Send(ctx, n, items)
	})
	return nil
}

func (d *Dispatcher) aggregate(n *domain.Notification) domain.DispatchResult {
	items := make([]domain.ItemResult, 0, len(n.Items))
	sent := 0
	for _, item := range n.Items {
		if item.Status == domain.StatusSent {
			sent++
		}
		items = append(items, domain.ItemResult{
			Recipient: item.Recipient,
			Status:    item.Status,
			ExtID:     item.ExtID,
			Error:     item.Error,
		})
	}

	extID := "success"
	if sent != len(n.Items) {
		extID = "batch not sent"
	}

	d.log.Info("notification dispatched",
		"notification_id", n.ID, "sent", sent, "total", len(n.Items))

	return domain.DispatchResult{Success: true, ExtID: extID, Items: items}
}
