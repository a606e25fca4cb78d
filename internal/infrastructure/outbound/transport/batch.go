package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// BatchResult is the outcome of one request of a batch.
type BatchResult struct {
	Index    int
	Response *Response
	Err      error
}

// Batch sends specs with at most maxConcurrent in flight. Each admitted
// request waits interval before firing. Every outcome is returned in input
// order; a failure never cancels its siblings.
func (c *Client) Batch(ctx context.Context, specs []RequestSpec, maxConcurrent int, interval time.Duration) []BatchResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	results := make([]BatchResult, len(specs))
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	var wg sync.WaitGroup
	for i, spec := range specs {
		results[i].Index = i
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(specs); j++ {
				results[j] = BatchResult{Index: j, Err: err}
			}
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			if err := c.clock.SleepContext(ctx, interval); err != nil {
				results[i].Err = err
				return
			}
			resp, err := c.Do(ctx, spec)
			results[i].Response = resp
			results[i].Err = err
		}()
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	c.logger.Info("batch completed", "requests", len(specs), "failed", failed)
	return results
}
