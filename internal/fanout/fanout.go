// Package fanout provides the bounded worker pool used for the concurrent
// fetch phases of a harvest.
package fanout

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/lblod/verenigingen-harvester/internal/support/logger"
)

// Map applies fn to every item with at most parallelism workers running at
// once. The result slice matches the input order, not completion order. Any
// worker failure is collected and surfaces as an error from the pool; failed
// positions are never silently left as zero values.
func Map[T any, R any](ctx context.Context, items []T, parallelism int, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]R, len(items))
	sem := make(chan struct{}, parallelism)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs *multierror.Error

	for i, item := range items {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				errs = multierror.Append(errs, ctx.Err())
				mu.Unlock()
				return
			}

			r, err := fn(ctx, item)
			if err != nil {
				logger.Warnf("Worker %d/%d failed: %v", i+1, len(items), err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return
			}
			results[i] = r
		}(i, item)
	}
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return results, nil
}
