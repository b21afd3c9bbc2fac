package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBatches(t *testing.T) {
	ctx := context.Background()

	t.Run("Settle count equals input count regardless of batch boundaries", func(t *testing.T) {
		for _, n := range []int{0, 1, 9, 10, 11, 25} {
			var settled int
			var mu sync.Mutex

			outcomes := runBatches(ctx, n, 10, 0, func(ctx context.Context, i int) Outcome {
				mu.Lock()
				settled++
				mu.Unlock()
				return Outcome{Recipient: "r"}
			})

			assert.Len(t, outcomes, n)
			assert.Equal(t, n, settled, "n=%d", n)
		}
	})

	t.Run("Outcomes keep input order", func(t *testing.T) {
		outcomes := runBatches(ctx, 12, 5, 0, func(ctx context.Context, i int) Outcome {
			return Outcome{MessageID: string(rune('a' + i))}
		})

		for i, o := range outcomes {
			assert.Equal(t, string(rune('a'+i)), o.MessageID)
		}
	})

	t.Run("One failure does not abort batch siblings", func(t *testing.T) {
		boom := errors.New("boom")
		outcomes := runBatches(ctx, 4, 4, 0, func(ctx context.Context, i int) Outcome {
			if i == 1 {
				return Outcome{Err: boom}
			}
			return Outcome{}
		})

		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
			}
		}
		assert.Equal(t, 1, failed)
	})

	t.Run("Batches run sequentially with at most batchSize in flight", func(t *testing.T) {
		var mu sync.Mutex
		inFlight, maxInFlight := 0, 0

		runBatches(ctx, 20, 5, 0, func(ctx context.Context, i int) Outcome {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return Outcome{}
		})

		assert.LessOrEqual(t, maxInFlight, 5)
	})

	t.Run("Cancellation settles remaining recipients as failures", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)

		outcomes := runBatches(cctx, 20, 10, 50*time.Millisecond, func(ctx context.Context, i int) Outcome {
			if i == 0 {
				cancel()
			}
			return Outcome{}
		})

		require.Len(t, outcomes, 20)
		// first batch completed; second batch never started
		for _, o := range outcomes[:10] {
			assert.NoError(t, o.Err)
		}
		for _, o := range outcomes[10:] {
			assert.ErrorIs(t, o.Err, context.Canceled)
		}
	})
}
