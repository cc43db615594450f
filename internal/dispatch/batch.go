package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"golang-notify-dispatch/internal/domain"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the item count above which a notification is
// partitioned into concurrent batches.
const DefaultBatchSize = 1000

// Executor partitions oversized item sets into contiguous, disjoint chunks
// and runs one delivery task per chunk concurrently. Chunks never share item
// references, so concurrent mutation is safe without locking.
type Executor struct {
	// BatchSize is the maximum chunk length. Values < 1 fall back to
	// DefaultBatchSize.
	BatchSize int

	// MaxConcurrent bounds how many chunk tasks run at once. Values < 1
	// mean no limit.
	MaxConcurrent int

	log *slog.Logger
}

// NewExecutor creates an Executor with the given chunking parameters.
func NewExecutor(batchSize, maxConcurrent int, log *slog.Logger) *Executor {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Executor{BatchSize: batchSize, MaxConcurrent: maxConcurrent, log: log}
}

// Partition splits items into contiguous chunks of at most BatchSize. The
// chunks are disjoint and their union is exactly the input slice.
func (e *Executor) Partition(items []*domain.Item) [][]*domain.Item {
	size := e.BatchSize
	if size < 1 {
		size = DefaultBatchSize
	}

	var chunks [][]*domain.Item
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Execute runs send once per chunk concurrently and joins every task
// unconditionally: a failing chunk never cancels its siblings. When a chunk's
// send returns an error or panics, every still-non-terminal item in that
// chunk is marked FAILED with the captured error text, so no item is left in
// the ambiguous SEND_FAILED state once Execute returns.
func (e *Executor) Execute(ctx context.Context, chunks [][]*domain.Item, send func(ctx context.Context, items []*domain.Item) error) {
	var g errgroup.Group
	if e.MaxConcurrent > 0 {
		g.SetLimit(e.MaxConcurrent)
	}

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failChunk(chunk, fmt.Sprintf("panic in batch task: %v", r))
					if e.log != nil {
						e.log.Error("batch task panicked", "batch", i, "err", r)
					}
				}
			}()

			if err := send(ctx, chunk); err != nil {
				failChunk(chunk, err.Error())
				if e.log != nil {
					e.log.Warn("batch delivery failed", "batch", i, "items", len(chunk), "err", err)
				}
			}
			return nil
		})
	}

	// Tasks report failures through item state, never through the group.
	_ = g.Wait()
}

// failChunk marks every non-terminal item in the chunk as FAILED. Items
// already SENT or FAILED keep their outcome.
func failChunk(items []*domain.Item, reason string) {
	for _, item := range items {
		item.MarkFailed(reason)
	}
}
