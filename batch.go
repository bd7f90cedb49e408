package central

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// RunAll submits tasks to e under category and waits until every submitted task
// has completed or ctx is done.
//
// Semantics:
// - Submission stops at the first Execute error; later tasks are not submitted.
// - The returned error is errors.Join of the submission error, every task error
//   (completion order) and ctx.Err() when the wait was cut short.
// - Task errors are also reported the usual way: logger, metrics and error handler.
// - A submitted task the executor drops on shutdown counts as completed with ErrShutdown.
func RunAll[K comparable](ctx context.Context, e *Executor[K], category K, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	b := &batch{done: make(chan struct{}, len(tasks))}
	started, submitErr := submitBatch(ctx, e, category, b, tasks)
	waitErr := b.wait(ctx, started)

	return errors.Join(append([]error{submitErr}, append(b.collected(), waitErr)...)...)
}

// ForEach applies fn to each item concurrently on e under category.
// It constructs one task per item and delegates to RunAll.
func ForEach[K comparable, T any](
	ctx context.Context, e *Executor[K], category K, items []T, fn func(context.Context, T) error,
) error {
	if len(items) == 0 {
		return nil
	}
	tasks := make([]Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, func(c context.Context) error { return fn(c, item) })
	}
	return RunAll(ctx, e, category, tasks)
}

type batch struct {
	mu   sync.Mutex
	errs []error
	done chan struct{}
}

// submitBatch wraps each task to record its error and signal completion, and submits
// until Execute fails. It returns the number of submitted tasks.
func submitBatch[K comparable](ctx context.Context, e *Executor[K], category K, b *batch, tasks []Task) (int, error) {
	started := 0
	for _, t := range tasks {
		var settled atomic.Bool
		settle := func(err error) {
			if settled.CompareAndSwap(false, true) {
				b.settle(err)
			}
		}
		wrapped := func(c context.Context) error {
			err := runTask(c, t)
			settle(err)
			return err
		}
		if err := e.execute(ctx, category, wrapped, settle); err != nil {
			return started, err
		}
		started++
	}
	return started, nil
}

// settle records the outcome of one submitted task.
func (b *batch) settle(err error) {
	if err != nil {
		b.mu.Lock()
		b.errs = append(b.errs, err)
		b.mu.Unlock()
	}
	b.done <- struct{}{}
}

// wait waits for exactly started completion signals.
func (b *batch) wait(ctx context.Context, started int) error {
	for range started {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
		}
	}
	return nil
}

func (b *batch) collected() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.errs...)
}
