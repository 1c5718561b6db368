// Package workpool runs a batch of items through a fixed number of workers.
//
// Each worker lazily builds one per-worker context (for example a transcription
// session) on its first item and closes it when it runs out of work. Results
// are delivered to the caller's emit function on the calling goroutine, in
// completion order.
package workpool

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Pool processes items of type T into results of type R using per-worker
// contexts of type W.
type Pool[T, R, W any] struct {
	// Size caps the worker count; it is further capped by runtime.NumCPU and
	// the number of items.
	Size int
	// NewWorker builds a worker's context. Nil means the zero W.
	NewWorker func(ctx context.Context, worker int) (W, error)
	// CloseWorker releases a worker's context. Optional.
	CloseWorker func(W)
	// OnPanic converts a recovered panic into a result. Required.
	OnPanic func(item T, recovered error) R
	// OnWorkerError converts a NewWorker failure into a result for every item
	// that worker would have handled. Defaults to OnPanic.
	OnWorkerError func(item T, err error) R
}

// Workers returns the number of goroutines Run would start for n items.
func (p *Pool[T, R, W]) Workers(n int) int {
	workers := p.Size
	if cpus := runtime.NumCPU(); workers > cpus {
		workers = cpus
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// Run processes items with at most Workers(len(items)) concurrent calls to fn
// and blocks until every result has been emitted.
func (p *Pool[T, R, W]) Run(ctx context.Context, items []T, fn func(ctx context.Context, w W, item T) R, emit func(R)) {
	if len(items) == 0 {
		return
	}
	jobs := make(chan T)
	results := make(chan R)

	var wg conc.WaitGroup
	for id := 0; id < p.Workers(len(items)); id++ {
		wg.Go(func() {
			p.work(ctx, id, jobs, results, fn)
		})
	}
	go func() {
		defer close(jobs)
		for _, item := range items {
			jobs <- item
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if emit != nil {
			emit(r)
		}
	}
}

func (p *Pool[T, R, W]) work(ctx context.Context, id int, jobs <-chan T, results chan<- R, fn func(context.Context, W, T) R) {
	var (
		w       W
		ready   bool
		initErr error
	)
	defer func() {
		if ready && p.CloseWorker != nil {
			var catcher panics.Catcher
			catcher.Try(func() { p.CloseWorker(w) })
		}
	}()

	for item := range jobs {
		if !ready && initErr == nil {
			w, initErr = p.newWorker(ctx, id)
			ready = initErr == nil
		}
		if initErr != nil {
			results <- p.workerError(item, initErr)
			continue
		}
		results <- p.call(ctx, w, item, fn)
	}
}

func (p *Pool[T, R, W]) newWorker(ctx context.Context, id int) (w W, err error) {
	if p.NewWorker == nil {
		return w, nil
	}
	var catcher panics.Catcher
	catcher.Try(func() {
		w, err = p.NewWorker(ctx, id)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return w, fmt.Errorf("worker %d setup panicked: %w", id, recovered.AsError())
	}
	return w, err
}

func (p *Pool[T, R, W]) call(ctx context.Context, w W, item T, fn func(context.Context, W, T) R) R {
	var (
		result  R
		catcher panics.Catcher
	)
	catcher.Try(func() {
		result = fn(ctx, w, item)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		return p.OnPanic(item, recovered.AsError())
	}
	return result
}

func (p *Pool[T, R, W]) workerError(item T, err error) R {
	if p.OnWorkerError != nil {
		return p.OnWorkerError(item, err)
	}
	return p.OnPanic(item, err)
}
