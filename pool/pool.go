// Package pool provides the fixed-size worker pool an Executor runs admitted tasks on.
package pool

import (
	"context"
	"errors"
)

// ErrShutdown is returned by Submit once the pool has been shut down.
var ErrShutdown = errors.New("pool: shut down")

// Pool runs jobs of type J on a bounded set of workers.
type Pool[J any] interface {
	// Submit hands a job to the pool without blocking.
	Submit(job J) error

	// Shutdown stops accepting jobs. Jobs already submitted still run.
	Shutdown()

	// ShutdownNow stops accepting jobs and returns those that never started.
	// Running jobs are not interrupted.
	ShutdownNow() []J

	// IsShutdown reports whether Shutdown or ShutdownNow was called.
	IsShutdown() bool

	// IsTerminated reports whether the pool is shut down and every worker exited.
	IsTerminated() bool

	// AwaitTermination blocks until the pool terminates or ctx is done.
	AwaitTermination(ctx context.Context) error
}
