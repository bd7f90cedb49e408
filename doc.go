// Package central provides an executor that shares one fixed-size worker pool
// among categories of tasks according to per-category quotas.
//
// Quotas
//   - Reserve(n): n workers guaranteed to the category. The sum of all reserves
//     can not exceed the pool size; Register fails otherwise.
//   - Elastic(n): up to n more workers the category may borrow while the pool has
//     workers not covered by any reservation. Unlimited() lifts the per-category cap.
//   - Nil(): no slots.
//
// Policies
//   - Pessimistic: a task runs only on its category's reserve. Idle workers outside
//     the reservation are never lent, elastic quotas are ignored, and tasks of
//     unregistered categories are rejected with ErrRejectedExecution.
//   - Optimistic: a task runs on its reserve, otherwise on an elastic slot backed
//     by an unreserved worker. Tasks of unregistered categories borrow unreserved
//     workers only when no quota-bearing task is waiting, and otherwise queue
//     behind all of them. They may wait forever under continuous quota-bearing load.
//
// Queueing
// A task that can not be admitted waits in a priority queue ordered by the size of
// its category's reserve, larger first, FIFO among equals. Every completion, normal
// or not, hands back the slot the task held and resubmits waiting tasks through the
// same admission path, so a queued task may be admitted on a reserved or an elastic
// slot depending on what was freed.
//
// Failures
// Tasks are fire-and-forget. A returned error or a panic (wrapped in ErrTaskPanicked)
// is logged, counted and passed to the handler set with WithErrorHandler; it never
// prevents the slot from being released.
//
// Batches
// RunAll and ForEach submit a batch under one category and wait for it, joining
// the batch's task errors.
//
// Lifecycle
//   - Shutdown: reject new tasks, keep running and admitting what was accepted.
//   - ShutdownNow: additionally cancel running task contexts and return the tasks
//     that never started.
//   - IsShutdown, IsTerminated, AwaitTermination: observe the pool.
package central
