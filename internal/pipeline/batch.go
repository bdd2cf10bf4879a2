package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the record fan-out width when none is configured.
// Stripe's standard rate limits comfortably absorb this many parallel reads.
const DefaultConcurrency = 5

// forEachRecord processes records concurrently with a bounded worker count,
// following the partial-failure contract: fn errors are counted, not
// propagated. Returns the number of failed records.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each record gets its own goroutine, but only 'concurrency' goroutines run
// simultaneously. fn errors are swallowed here by design; the caller's
// onError callback logs them and the run counters expose the totals.
func forEachRecord[T any](ctx context.Context, concurrency int, records []T, fn func(ctx context.Context, record T) error, onError func(record T, err error)) int {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var mu sync.Mutex
	failed := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, record := range records {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if err := fn(ctx, record); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				onError(record, err)
			}
			return nil
		})
	}

	// The only errors reaching the group are cancellations; record errors
	// were counted above.
	_ = g.Wait() //nolint:errcheck

	return failed
}
