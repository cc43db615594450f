package domain

// ItemResult is the per-recipient slice of a DispatchResult.
type ItemResult struct {
	Recipient string         `json:"recipient"`
	Status    DeliveryStatus `json:"status"`
	ExtID     string         `json:"ext_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// DispatchResult is the uniform record returned by the dispatch pipeline.
//
// Success means the pipeline executed to completion, not that every item was
// delivered: partial delivery still yields Success=true, and callers must
// inspect the per-item statuses for the actual outcome. Reason is set when
// the notification was rejected by the safety check (no vendor call was
// made); Error is set when an unexpected failure was contained at the
// dispatcher boundary.
type DispatchResult struct {
	Success bool         `json:"success"`
	ExtID   string       `json:"ext_id,omitempty"`
	Reason  string       `json:"reason,omitempty"`
	Error   string       `json:"error,omitempty"`
	Items   []ItemResult `json:"items,omitempty"`
}

// SentCount returns the number of items that reached SENT.
func (r DispatchResult) SentCount() int {
	n := 0
	for _, it := range r.Items {
		if it.Status == StatusSent {
			n++
		}
	}
	return n
}
