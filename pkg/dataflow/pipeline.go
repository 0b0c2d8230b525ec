// Package dataflow runs a function over a slice with a bounded worker pool.
package dataflow

import (
	"context"
	"sync"
	"time"
)

// Result pairs the output of one item with its error.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item and returns the results in input order.
// Items that were not started before ctx is done carry ctx.Err().
func Map[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error), opts ...Option) []Result[R] {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	results := make([]Result[R], len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			v, err := attempt(ctx, cfg, func() (R, error) { return fn(ctx, items[i]) })
			results[i] = Result[R]{Value: v, Err: err}
		}
	}

	workers := min(cfg.workers, len(items))
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

	next := 0
feed:
	for ; next < len(items); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case jobs <- next:
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(items); i++ {
		results[i].Err = ctx.Err()
	}
	return results
}

// ForEach is Map without values. It returns the first error in input order.
func ForEach[T any](ctx context.Context, items []T, fn func(context.Context, T) error, opts ...Option) error {
	results := Map(ctx, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	}, opts...)
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func attempt[R any](ctx context.Context, cfg *config, call func() (R, error)) (R, error) {
	res, err := call()
	for i := 1; err != nil && i <= cfg.maxRetries; i++ {
		if cfg.backoff != nil {
			select {
			case <-ctx.Done():
				return res, err
			case <-time.After(cfg.backoff(i)):
			}
		}
		res, err = call()
	}
	return res, err
}
