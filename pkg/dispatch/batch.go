package dispatch

import (
	"context"
	"sync"
	"time"
)

// Outcome is the settled result of one send attempt
type Outcome struct {
	Recipient string
	MessageID string
	Status    string
	Err       error
}

// runBatches partitions n work items into fixed-size batches, fans each
// batch out concurrently, waits for every send in the batch to settle, then
// pauses for delay before the next batch. Outcomes come back in input order;
// each batch collects into its own slice segment so no counter is shared
// across goroutines.
//
// Cancellation is honored at batch boundaries only: once a batch is in
// flight it runs to completion, and remaining recipients are settled as
// failures carrying the context error.
func runBatches(ctx context.Context, n, batchSize int, delay time.Duration, send func(ctx context.Context, i int) Outcome) []Outcome {
	if batchSize <= 0 {
		batchSize = 1
	}

	outcomes := make([]Outcome, n)

	for start := 0; start < n; start += batchSize {
		if err := ctx.Err(); err != nil {
			for i := start; i < n; i++ {
				outcomes[i] = Outcome{Err: err}
			}
			return outcomes
		}

		end := start + batchSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = send(ctx, i)
			}(i)
		}
		wg.Wait()

		if end < n && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	return outcomes
}
