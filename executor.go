package central

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/ygrebnov/central/metrics"
	"github.com/ygrebnov/central/pool"
)

// Executor runs tasks on a fixed pool of workers partitioned among categories of type K.
// Each registered category owns a reserved quota and, under the Optimistic policy, an
// elastic quota it may borrow from workers no reservation covers. Tasks that cannot be
// admitted wait in a priority queue and are resubmitted whenever a task completes.
//
// Executor is safe for concurrent use.
type Executor[K comparable] struct {
	size    int64
	policy  Policy
	logger  *zap.Logger
	onError func(error)
	inst    instruments

	pool  pool.Pool[*job[K]]
	queue *waitQueue[*job[K]]

	regMu    sync.Mutex
	registry sync.Map // K -> *submitter, written once per key under regMu

	reserved atomic.Int64 // sum of registered reserves, written under regMu
	borrowed atomic.Int64 // running tasks holding a worker outside every reservation
	running  atomic.Int64

	// refs counts Execute calls in progress plus admitted tasks not yet completed.
	// The pool is shut down when it drops to zero after Shutdown.
	refs     atomic.Int64
	shutdown atomic.Bool

	stop      context.Context
	cancel    context.CancelFunc
	lifecycle *lifecycleCoordinator[*job[K]]
}

// job is a task travelling through admission. slot and borrowed are set on admission
// and returned exactly once on completion.
type job[K comparable] struct {
	ctx      context.Context
	category K
	task     Task
	sub      *submitter
	slot     *Quota
	borrowed bool
	queuedAt time.Time

	// dropped, if set, is called once when the executor gives up on a task it accepted.
	dropped func(error)
}

func (j *job[K]) drop(err error) {
	if j.dropped != nil {
		j.dropped(err)
	}
}

// Stats is a point-in-time view of executor capacity.
type Stats struct {
	PoolSize int
	Reserved int
	Borrowed int
	Running  int
	Queued   int
}

// New creates an Executor with size workers admitting tasks according to policy.
func New[K comparable](size uint, policy Policy, opts ...Option) (*Executor[K], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, errorc.With(ErrInvalidConfiguration, errorc.String("size", "pool size must be > 0"))
	}
	if !policy.valid() {
		return nil, errorc.With(ErrInvalidConfiguration, errorc.String("policy", policy.String()))
	}

	e := &Executor[K]{
		size:    int64(size),
		policy:  policy,
		logger:  cfg.Logger.With(zap.Stringer("policy", policy)),
		onError: cfg.ErrorHandler,
		inst:    newInstruments(cfg.Metrics),
		queue:   newWaitQueue[*job[K]](),
	}
	e.stop, e.cancel = context.WithCancel(context.Background())
	e.pool = pool.NewFixed[*job[K]](size, e.run)
	e.lifecycle = newLifecycleCoordinator(
		e.cancel,
		e.queue.close,
		e.pool.Shutdown,
		e.stopPoolNow,
		e.abandon,
	)

	e.logger.Debug("executor started", zap.Uint("size", size))
	return e, nil
}

// Register binds a reserved quota and a secondary (elastic) quota to category.
// Registration is one-time per category and per Quota value.
//
// It fails with ErrInvalidArgument for negative quotas, with ErrInvalidConfiguration
// when the reserve exceeds the workers not yet reserved or the pair could never admit
// a task under the executor's policy, and with ErrAlreadyRegistered for a repeated category.
func (e *Executor[K]) Register(category K, reserve, secondary *Quota) error {
	if err := e.policy.validate(reserve, secondary); err != nil {
		return err
	}
	if e.shutdown.Load() {
		return ErrShutdown
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	if _, ok := e.registry.Load(category); ok {
		return errorc.With(ErrAlreadyRegistered, errorc.String("category", fmt.Sprint(category)))
	}

	reserved := e.reserved.Load()
	if free := e.size - reserved; int64(reserve.Max()) > free {
		return errorc.With(
			ErrInvalidConfiguration,
			errorc.String("reserve", "no resource for reserve "+strconv.Itoa(reserve.Max())+
				", unreserved workers "+strconv.FormatInt(free, 10)),
		)
	}

	if !reserve.bind() {
		return errorc.With(ErrInvalidConfiguration, errorc.String("reserve", "quota already registered"))
	}
	if !secondary.bind() {
		reserve.bound.Store(false)
		return errorc.With(ErrInvalidConfiguration, errorc.String("elastic", "quota already registered"))
	}

	e.reserved.Store(reserved + int64(reserve.Max()))
	e.registry.Store(category, &submitter{reserve: reserve, elastic: secondary})

	e.logger.Debug("quota registered",
		zap.Any("category", category),
		zap.Int("reserve", reserve.Max()),
		zap.Int("elastic", secondary.Max()),
		zap.Int64("reserved", reserved+int64(reserve.Max())),
	)
	return nil
}

// Execute submits task under category. It never waits for a worker: the task is
// either handed to the pool or queued. Under the Pessimistic policy a task of an
// unregistered category fails with ErrRejectedExecution and never runs.
//
// The task's outcome is not reported to the caller; see WithErrorHandler.
func (e *Executor[K]) Execute(ctx context.Context, category K, task Task) error {
	return e.execute(ctx, category, task, nil)
}

// execute is Execute with a hook for accepted tasks that will never run.
func (e *Executor[K]) execute(ctx context.Context, category K, task Task, dropped func(error)) error {
	if task == nil {
		return ErrNilTask
	}
	if ctx == nil {
		ctx = context.Background()
	}

	e.refs.Inc()
	defer e.releaseRef()

	if e.shutdown.Load() {
		e.inst.rejected.Add(1)
		return ErrShutdown
	}

	j := &job[K]{ctx: ctx, category: category, task: task, dropped: dropped}
	if s, ok := e.registry.Load(category); ok {
		j.sub = s.(*submitter)
	}

	d, err := e.dispatch(j)
	if err != nil {
		return err
	}
	if d.outcome == enqueue && !e.enqueue(j, d.priority) {
		return ErrShutdown
	}
	return nil
}

// dispatch is the single admission entry point for new and drained tasks.
// An admitted task is handed to the pool; a task to be queued is left to the caller.
func (e *Executor[K]) dispatch(j *job[K]) (decision, error) {
	d := e.policy.decide(j.sub, e)
	switch d.outcome {
	case admitNow:
		if err := e.admit(j, d); err != nil {
			return d, err
		}
	case reject:
		e.inst.rejected.Add(1)
		e.logger.Debug("task rejected", zap.Any("category", j.category), zap.Error(d.err))
		return d, d.err
	}
	return d, nil
}

func (e *Executor[K]) admit(j *job[K], d decision) error {
	j.slot, j.borrowed = d.slot, d.borrowed
	e.refs.Inc()
	if err := e.pool.Submit(j); err != nil {
		e.returnSlots(j)
		e.releaseRef()
		return fmt.Errorf("%w: %w", ErrShutdown, err)
	}

	e.inst.admitted.Add(1)
	if !j.queuedAt.IsZero() {
		wait := time.Since(j.queuedAt)
		e.inst.queueWait.Record(wait.Seconds())
		e.logger.Debug("dequeue", zap.Any("category", j.category), zap.Duration("waited", wait))
	}
	return nil
}

// enqueue reports false if the queue was already closed by ShutdownNow.
func (e *Executor[K]) enqueue(j *job[K], priority int) bool {
	if j.queuedAt.IsZero() {
		j.queuedAt = time.Now()
	}
	if !e.queue.push(j, priority) {
		return false
	}
	e.inst.queued.Add(1)
	e.logger.Debug("enqueue", zap.Any("category", j.category), zap.Int("priority", priority))

	// A completion may have freed room between the decision and the push.
	if e.policy.hasRoom(j.sub, e) {
		e.drain()
	}
	return true
}

// drain admits the highest-priority queued task the free capacity can serve, and
// repeats while the queue head or a task it set aside could still be admitted.
// Tasks it cannot serve are set aside and restored in their original order.
func (e *Executor[K]) drain() {
	for {
		var skipped []*waiting[*job[K]]
		for {
			w, ok := e.queue.tryPop()
			if !ok {
				break
			}
			d, err := e.dispatch(w.value)
			if err != nil {
				e.logger.Warn("queued task dropped", zap.Any("category", w.value.category), zap.Error(err))
				e.inst.abandoned.Add(1)
				w.value.drop(err)
				continue
			}
			if d.outcome == admitNow {
				break
			}
			skipped = append(skipped, w)
		}

		if dropped := e.queue.restore(skipped...); len(dropped) > 0 {
			e.abandon(dropped)
		}
		if !e.anyRoom(skipped) && !e.headHasRoom() {
			return
		}
	}
}

func (e *Executor[K]) anyRoom(ws []*waiting[*job[K]]) bool {
	for _, w := range ws {
		if e.policy.hasRoom(w.value.sub, e) {
			return true
		}
	}
	return false
}

func (e *Executor[K]) headHasRoom() bool {
	j, ok := e.queue.peek()
	return ok && e.policy.hasRoom(j.sub, e)
}

// run is executed by a pool worker for every admitted job.
func (e *Executor[K]) run(j *job[K]) {
	defer e.complete(j)

	e.running.Inc()
	e.inst.running.Add(1)

	ctx, cancel := context.WithCancel(j.ctx)
	stopAfter := context.AfterFunc(e.stop, cancel)
	defer func() {
		stopAfter()
		cancel()
	}()

	if err := runTask(ctx, j.task); err != nil {
		e.fail(j, err)
	}
}

// complete hands back what j consumed and drains the queue. It runs for every
// admitted job, whether the task returned, failed or panicked.
func (e *Executor[K]) complete(j *job[K]) {
	e.returnSlots(j)
	e.running.Dec()
	e.inst.running.Add(-1)
	e.drain()
	e.releaseRef()
}

func (e *Executor[K]) fail(j *job[K], err error) {
	e.inst.failed.Add(1)
	e.logger.Error("task failed", zap.Any("category", j.category), zap.Error(err))
	if e.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("error handler panicked", zap.Any("panic", r))
		}
	}()
	e.onError(newCategoryTaggedError(err, j.category, j.sub != nil))
}

func (e *Executor[K]) returnSlots(j *job[K]) {
	if j.slot != nil {
		if !j.slot.Release() {
			e.inst.overflow.Add(1)
			e.logger.Error("invalid quota release", zap.Any("category", j.category), zap.Int("max", j.slot.Max()))
		}
		j.slot = nil
	}
	if j.borrowed {
		e.giveBack()
		j.borrowed = false
	}
}

func (e *Executor[K]) releaseRef() {
	if e.refs.Dec() == 0 && e.shutdown.Load() {
		e.lifecycle.Close()
	}
}

func (e *Executor[K]) abandon(jobs []*job[K]) {
	e.inst.abandoned.Add(int64(len(jobs)))
	for _, j := range jobs {
		e.logger.Warn("task abandoned", zap.Any("category", j.category))
		j.drop(ErrShutdown)
	}
}

// stopPoolNow stops the pool and hands back the capacity of jobs that never started.
func (e *Executor[K]) stopPoolNow() []*job[K] {
	left := e.pool.ShutdownNow()
	for _, j := range left {
		e.returnSlots(j)
		e.releaseRef()
	}
	return left
}

// tryBorrow, giveBack, unreservedFree and quotaWaiting implement capacity.

func (e *Executor[K]) tryBorrow() bool {
	for {
		b := e.borrowed.Load()
		if b >= e.size-e.reserved.Load() {
			return false
		}
		if e.borrowed.CompareAndSwap(b, b+1) {
			return true
		}
	}
}

func (e *Executor[K]) giveBack() { e.borrowed.Dec() }

func (e *Executor[K]) unreservedFree() int {
	return int(e.size - e.reserved.Load() - e.borrowed.Load())
}

func (e *Executor[K]) quotaWaiting() bool {
	key, ok := e.queue.topKey()
	return ok && key > lowestPriority
}

// Shutdown stops accepting tasks. Running tasks finish and queued tasks keep being
// admitted as capacity frees; once nothing is in flight the pool is shut down and
// anything still queued is abandoned.
func (e *Executor[K]) Shutdown() {
	if e.shutdown.CompareAndSwap(false, true) {
		e.logger.Debug("shutdown requested", zap.Int("queued", e.queue.size()))
	}
	if e.refs.Load() == 0 {
		e.lifecycle.Close()
	}
}

// ShutdownNow stops accepting tasks, cancels the contexts of running tasks and
// returns every task that never started.
func (e *Executor[K]) ShutdownNow() []Task {
	e.shutdown.Store(true)
	left := e.lifecycle.CloseNow()
	tasks := make([]Task, 0, len(left))
	for _, j := range left {
		tasks = append(tasks, j.task)
		j.drop(ErrShutdown)
	}
	e.logger.Debug("shutdown now", zap.Int("unstarted", len(tasks)))
	return tasks
}

// IsShutdown reports whether Shutdown or ShutdownNow was called.
func (e *Executor[K]) IsShutdown() bool { return e.shutdown.Load() }

// IsTerminated reports whether the executor is shut down and all workers exited.
func (e *Executor[K]) IsTerminated() bool { return e.pool.IsTerminated() }

// AwaitTermination blocks until the executor terminates or ctx is done.
// Use context.WithTimeout to bound the wait.
func (e *Executor[K]) AwaitTermination(ctx context.Context) error {
	return e.pool.AwaitTermination(ctx)
}

// Policy returns the admission policy.
func (e *Executor[K]) Policy() Policy { return e.policy }

// Stats returns a snapshot of executor capacity. Fields are read independently.
func (e *Executor[K]) Stats() Stats {
	return Stats{
		PoolSize: int(e.size),
		Reserved: int(e.reserved.Load()),
		Borrowed: int(e.borrowed.Load()),
		Running:  int(e.running.Load()),
		Queued:   e.queue.size(),
	}
}

type instruments struct {
	admitted  metrics.Counter
	queued    metrics.Counter
	rejected  metrics.Counter
	failed    metrics.Counter
	abandoned metrics.Counter
	overflow  metrics.Counter
	running   metrics.UpDownCounter
	queueWait metrics.Histogram
}

func newInstruments(p metrics.Provider) instruments {
	return instruments{
		admitted:  p.Counter(metrics.TasksAdmitted, metrics.WithUnit("1")),
		queued:    p.Counter(metrics.TasksQueued, metrics.WithUnit("1")),
		rejected:  p.Counter(metrics.TasksRejected, metrics.WithUnit("1")),
		failed:    p.Counter(metrics.TasksFailed, metrics.WithUnit("1")),
		abandoned: p.Counter(metrics.TasksAbandoned, metrics.WithUnit("1")),
		overflow: p.Counter(metrics.QuotaReleaseOverflow,
			metrics.WithDescription("quota releases that found every slot free")),
		running: p.UpDownCounter(metrics.TasksRunning, metrics.WithUnit("1")),
		queueWait: p.Histogram(metrics.QueueWaitSeconds,
			metrics.WithUnit("s"), metrics.WithDescription("time from enqueue to admission")),
	}
}
