// Package fanout implements the bounded-concurrency fan-out executor (C5):
// a fixed worker budget processes a batch of items, isolates per-item
// failures from the batch, and surfaces both outcomes and failures to the
// caller without aborting the run.
package fanout

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FailureSink receives an item that could not be processed, for dead-letter
// persistence. Implementations must not block the caller significantly;
// Write errors are logged, not propagated, so one bad sink never stalls
// the batch.
type FailureSink interface {
	Write(ctx context.Context, node string, item any, cause error) error
}

// Result pairs one input item with its outcome. Exactly one of Output/Err
// is meaningful: Err nil means Output is valid.
type Result[T any] struct {
	Item   T
	Output any
	Err    error
}

// Work is the per-item unit of work a caller hands to Run.
type Work[T any] func(ctx context.Context, item T) (any, error)

// Options configures one Run call.
type Options struct {
	// Concurrency bounds the number of in-flight goroutines. Values <= 0
	// default to 1 (serial execution).
	Concurrency int
	// Node names the DAG node this batch belongs to, used only for
	// logging and DLQ path construction.
	Node string
	// Sink receives every item whose Work call returned an error. Nil is
	// permitted, in which case failures are only logged.
	Sink FailureSink
	Logger *slog.Logger
}

// Run executes work over items with bounded concurrency. It never returns
// an error itself: per-item failures are isolated into each Result and
// (if Sink is set) written to the dead-letter sink. Results are collected
// in completion order, not input order, since slower items must not block
// faster ones from being reported.
func Run[T any](ctx context.Context, items []T, work Work[T], opts Options) []Result[T] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	results := make([]Result[T], 0, len(items))

	for _, item := range items {
		item := item
		g.Go(func() error {
			out, err := work(gCtx, item)
			if err != nil {
				logger.Warn("fanout item failed", "node", opts.Node, "error", err)
				if opts.Sink != nil {
					if werr := opts.Sink.Write(ctx, opts.Node, item, err); werr != nil {
						logger.Error("dead-letter write failed", "node", opts.Node, "error", werr)
					}
				}
			}
			mu.Lock()
			results = append(results, Result[T]{Item: item, Output: out, Err: err})
			mu.Unlock()
			return nil // item failures are isolated, never abort the batch
		})
	}

	// g.Wait() only ever returns non-nil if ctx cancellation propagated
	// through gCtx and a goroutine returned it directly, which never
	// happens here since every Go closure returns nil unconditionally.
	_ = g.Wait()

	return results
}

// Succeeded filters a result slice down to successful outcomes.
func Succeeded[T any](results []Result[T]) []Result[T] {
	out := make([]Result[T], 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Failed filters a result slice down to failed outcomes.
func Failed[T any](results []Result[T]) []Result[T] {
	out := make([]Result[T], 0)
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
