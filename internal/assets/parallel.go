package assets

import (
	"context"
	"sync"
)

// ForEach runs fn over items with at most concurrency calls in flight.
// Items not yet started when ctx is done are skipped; the context error is
// returned.
func ForEach[T any](ctx context.Context, items []T, concurrency int, fn func(int, T)) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i, item)
		}(i, item)
	}
	wg.Wait()
	return ctx.Err()
}
