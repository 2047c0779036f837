// Package worker provides a generic concurrent worker pool for fan-out/fan-in
// path processing. Used by the bulk-read, bulk-symbols, and bulk-context
// commands to parallelize per-file jj reads across available CPUs.
package worker

import (
	"context"
	"runtime"
	"sync"
)

// Result pairs a processed value with the path it came from and its
// original index, so a caller rendering bulk output doesn't need to
// re-index into its own input slice to label an error or success line.
type Result[T any] struct {
	Index int
	Path  string
	Value T
	Err   error
}

// Pool fans out path-scoped work across a fixed number of goroutine workers
// and collects results preserving the original input order.
type Pool[T any] struct {
	concurrency int
}

// NewPool creates a worker pool with the given concurrency.
// If concurrency <= 0, defaults to runtime.NumCPU().
func NewPool[T any](concurrency int) *Pool[T] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[T]{concurrency: concurrency}
}

// Process distributes paths across workers and applies fn to each, returning
// results in the same order as the input slice. fn receives ctx so a
// long-running jj invocation (internal/vcsdriver) can observe cancellation;
// once ctx is done, paths not yet picked up by a worker are recorded as
// failed with ctx.Err() instead of being dispatched. Errors from individual
// paths are captured per-result rather than aborting the whole batch.
func (p *Pool[T]) Process(ctx context.Context, paths []string, fn func(context.Context, string) (T, error)) []Result[T] {
	if len(paths) == 0 {
		return nil
	}

	// Cap concurrency to number of paths.
	workers := p.concurrency
	if workers > len(paths) {
		workers = len(paths)
	}

	type job struct {
		index int
		path  string
	}

	jobs := make(chan job, len(paths))
	results := make([]Result[T], len(paths))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					results[j.index] = Result[T]{Index: j.index, Path: j.path, Err: ctx.Err()}
					continue
				default:
				}
				val, err := fn(ctx, j.path)
				results[j.index] = Result[T]{Index: j.index, Path: j.path, Value: val, Err: err}
			}
		}()
	}

	for i, path := range paths {
		jobs <- job{index: i, path: path}
	}
	close(jobs)

	wg.Wait()

	return results
}
