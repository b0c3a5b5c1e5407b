// Package worker bounds the concurrency of the prefetch phase and
// throttles outbound requests per upstream host.
package worker

import (
	"context"
	"sync"
)

// Pool runs indexed fetch jobs with bounded parallelism. Jobs write into
// their own result slot, so the caller can keep walking results in config
// order after the parallel phase.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run invokes fn for every index in [0, n) across the pool's workers and
// blocks until all jobs finish or the context is cancelled. Remaining
// indices are dropped on cancellation.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > n {
		workers = n
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case i, ok := <-jobs:
					if !ok {
						return
					}
					fn(ctx, i)
				}
			}
		}()
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
}
