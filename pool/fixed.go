package pool

import (
	"context"
	"sync"
)

// fixed is a pool of a constant number of long-lived worker goroutines
// sharing one unbounded FIFO of pending jobs.
type fixed[J any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []J
	run     func(J)

	shutdown bool
	stopped  bool // ShutdownNow: workers leave without taking pending jobs

	workers    sync.WaitGroup
	terminated chan struct{}
}

// NewFixed starts size workers, each calling run for one job at a time.
// A size of 0 is treated as 1.
func NewFixed[J any](size uint, run func(J)) Pool[J] {
	if size == 0 {
		size = 1
	}
	p := &fixed[J]{
		run:        run,
		terminated: make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.workers.Add(int(size))
	for range size {
		go p.work()
	}
	go func() {
		p.workers.Wait()
		close(p.terminated)
	}()
	return p
}

func (p *fixed[J]) work() {
	defer p.workers.Done()
	for {
		job, ok := p.next()
		if !ok {
			return
		}
		p.run(job)
	}
}

// next blocks until a job is pending or the worker has to leave.
func (p *fixed[J]) next() (J, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.pending) == 0 && !p.shutdown {
		p.cond.Wait()
	}
	if p.stopped || len(p.pending) == 0 {
		var zero J
		return zero, false
	}
	job := p.pending[0]
	var zero J
	p.pending[0] = zero
	p.pending = p.pending[1:]
	return job, true
}

func (p *fixed[J]) Submit(job J) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return ErrShutdown
	}
	p.pending = append(p.pending, job)
	p.cond.Signal()
	return nil
}

func (p *fixed[J]) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	p.cond.Broadcast()
}

func (p *fixed[J]) ShutdownNow() []J {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	p.stopped = true
	left := p.pending
	p.pending = nil
	p.cond.Broadcast()
	return left
}

func (p *fixed[J]) IsShutdown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown
}

func (p *fixed[J]) IsTerminated() bool {
	select {
	case <-p.terminated:
		return true
	default:
		return false
	}
}

func (p *fixed[J]) AwaitTermination(ctx context.Context) error {
	select {
	case <-p.terminated:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
