package central

import (
	"context"
	"fmt"
)

// Task is a unit of work run by an Executor.
// The context is the one passed to Execute; it is also cancelled by ShutdownNow.
// A returned error is reported to the error handler and logged, never to the submitter.
type Task func(ctx context.Context) error

// TaskFunc adapts a func() to Task.
func TaskFunc(fn func()) Task {
	return func(context.Context) error { fn(); return nil }
}

// TaskContext adapts a func(ctx) to Task.
func TaskContext(fn func(context.Context)) Task {
	return func(ctx context.Context) error { fn(ctx); return nil }
}

// runTask calls t and turns a panic into an ErrTaskPanicked error.
func runTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return t(ctx)
}
