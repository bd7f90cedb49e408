package central

import (
	"container/heap"
	"context"
	"math"
	"sync"
)

// lowestPriority is the key of tasks without a registered quota.
// They drain after every quota-bearing task.
const lowestPriority = math.MinInt

// waiting is a queued value together with its ordering key.
// seq breaks ties between equal keys in insertion order.
type waiting[T any] struct {
	value T
	key   int
	seq   uint64
	index int
}

// waitHeap is a max-heap by key, FIFO among equal keys.
type waitHeap[T any] []*waiting[T]

func (h waitHeap[T]) Len() int { return len(h) }

func (h waitHeap[T]) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key > h[j].key
	}
	return h[i].seq < h[j].seq
}

func (h waitHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap[T]) Push(x any) {
	w := x.(*waiting[T])
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waitHeap[T]) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}

// waitQueue holds tasks that could not be admitted yet.
// push never blocks; pop blocks until a value arrives, ctx is done or the queue is closed.
type waitQueue[T any] struct {
	mu     sync.Mutex
	items  waitHeap[T]
	seq    uint64
	notify chan struct{} // closed and replaced on every push
	done   chan struct{}
	closed bool
}

func newWaitQueue[T any]() *waitQueue[T] {
	return &waitQueue[T]{
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// push enqueues v with the given key. It reports false if the queue is closed.
func (q *waitQueue[T]) push(v T, key int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.seq++
	heap.Push(&q.items, &waiting[T]{value: v, key: key, seq: q.seq})
	q.wake()
	return true
}

// restore puts back entries taken by tryPop, keeping their original order.
// Entries are dropped and returned if the queue was closed in the meantime.
func (q *waitQueue[T]) restore(ws ...*waiting[T]) []T {
	if len(ws) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		dropped := make([]T, 0, len(ws))
		for _, w := range ws {
			dropped = append(dropped, w.value)
		}
		return dropped
	}
	for _, w := range ws {
		heap.Push(&q.items, w)
	}
	q.wake()
	return nil
}

// wake must be called with q.mu held.
func (q *waitQueue[T]) wake() {
	close(q.notify)
	q.notify = make(chan struct{})
}

// tryPop removes the entry with the highest key without blocking.
func (q *waitQueue[T]) tryPop() (*waiting[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || len(q.items) == 0 {
		return nil, false
	}
	return heap.Pop(&q.items).(*waiting[T]), true
}

// pop removes the entry with the highest key, blocking while the queue is empty.
func (q *waitQueue[T]) pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			var zero T
			return zero, errQueueClosed
		}
		if len(q.items) > 0 {
			w := heap.Pop(&q.items).(*waiting[T])
			q.mu.Unlock()
			return w.value, nil
		}
		notify := q.notify
		q.mu.Unlock()

		select {
		case <-notify:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// peek returns the next value to be popped without removing it.
func (q *waitQueue[T]) peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0].value, true
}

// topKey returns the key of the next entry to be popped.
func (q *waitQueue[T]) topKey() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].key, true
}

func (q *waitQueue[T]) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// close wakes all blocked poppers and returns what was still queued, in pop order.
// Subsequent calls return nil.
func (q *waitQueue[T]) close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	left := make([]T, 0, len(q.items))
	for len(q.items) > 0 {
		left = append(left, heap.Pop(&q.items).(*waiting[T]).value)
	}
	return left
}
