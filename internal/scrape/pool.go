package scrape

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers leaves one CPU for the rest of the process.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// Map calls fn for every input with at most workers calls in flight. It returns only
// after every call has finished, with results in input order. The first error cancels
// the remaining calls and is returned.
func Map[In, Out any](ctx context.Context, workers int, inputs []In, fn func(ctx context.Context, in In) (Out, error)) ([]Out, error) {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	results := make([]Out, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			out, err := fn(gctx, in)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
