package grouper

import (
	"context"
	"sync"

	"github.com/dupefind/dupefind/internal/types"
)

// parallelForEach dispatches fn over units with at most workers concurrent
// in flight, using a semaphore-bounded worker pool. It stops launching new units once ctx is cancelled but still
// waits for in-flight units to return (they observe ctx themselves), and
// always returns ctx.Err() so callers can distinguish a clean run from one
// cut short by cancellation.
func parallelForEach[T any](ctx context.Context, workers int, units []T, fn func(context.Context, T)) error {
	if workers < 1 {
		workers = 1
	}

	sem := types.NewSemaphore(workers)
	var wg sync.WaitGroup

	for _, u := range units {
		if ctx.Err() != nil {
			break
		}
		sem.Acquire()
		wg.Add(1)
		go func(u T) {
			defer wg.Done()
			defer sem.Release()
			fn(ctx, u)
		}(u)
	}

	wg.Wait()
	return ctx.Err()
}
