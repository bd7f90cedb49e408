package central

import (
	"sync"
)

// lifecycleCoordinator runs the executor's final shutdown sequence exactly once.
// It doesn't own the queue or the pool; it only orders the calls into them.
//
// Close is the graceful path, taken when the last in-flight task of a shut down
// executor completes. CloseNow is the abrupt path taken by ShutdownNow; after it,
// Close is a no-op.
type lifecycleCoordinator[J any] struct {
	cancel      func()
	closeQueue  func() []J
	stopPool    func()
	stopPoolNow func() []J
	abandon     func([]J)

	once sync.Once
}

func newLifecycleCoordinator[J any](
	cancel func(),
	closeQueue func() []J,
	stopPool func(),
	stopPoolNow func() []J,
	abandon func([]J),
) *lifecycleCoordinator[J] {
	return &lifecycleCoordinator[J]{
		cancel:      cancel,
		closeQueue:  closeQueue,
		stopPool:    stopPool,
		stopPoolNow: stopPoolNow,
		abandon:     abandon,
	}
}

// Close:
// 1) close the wait queue, reporting tasks that can no longer be admitted
// 2) shut the pool down, letting it terminate once its workers are idle
func (lc *lifecycleCoordinator[J]) Close() {
	lc.once.Do(func() {
		if left := lc.closeQueue(); len(left) > 0 && lc.abandon != nil {
			lc.abandon(left)
		}
		lc.stopPool()
	})
}

// CloseNow:
// 1) cancel the contexts of running tasks
// 2) close the wait queue, unblocking every popper
// 3) stop the pool, collecting jobs it never started
//
// It returns the queued and never started jobs, queue first.
// The sequence may run more than once; each step is idempotent.
func (lc *lifecycleCoordinator[J]) CloseNow() []J {
	// Close must not run after this point, including from inside the steps below.
	lc.once.Do(func() {})

	if lc.cancel != nil {
		lc.cancel()
	}
	left := lc.closeQueue()
	return append(left, lc.stopPoolNow()...)
}
