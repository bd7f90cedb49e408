package central

import (
	"math"
	"strconv"

	"github.com/ygrebnov/errorc"
	"go.uber.org/atomic"
)

// Quota is a bounded counter of remaining admission slots for one capacity class.
// The remaining count always stays within [0, Max()]; acquire and release are
// lock-free compare-and-swap loops and are safe for any number of goroutines.
//
// A Quota is bound to exactly one category at registration and must not be reused.
type Quota struct {
	max   int64
	cur   atomic.Int64
	bound atomic.Bool
}

// NewQuota returns a Quota with max free slots.
// It fails with ErrInvalidArgument when max is negative.
func NewQuota(max int) (*Quota, error) {
	q := newQuota(max)
	if err := q.validate("quota"); err != nil {
		return nil, err
	}
	return q, nil
}

func newQuota(max int) *Quota {
	q := &Quota{max: int64(max)}
	if max > 0 {
		q.cur.Store(int64(max))
	}
	return q
}

// Reserve returns a quota of n slots guaranteed to a single category.
// A negative n is reported by Executor.Register.
func Reserve(n int) *Quota { return newQuota(n) }

// Elastic returns a quota of n slots a category may borrow from idle, unreserved
// workers. It is only honored by the Optimistic policy.
// A negative n is reported by Executor.Register.
func Elastic(n int) *Quota { return newQuota(n) }

// Nil returns an empty quota.
func Nil() *Quota { return newQuota(0) }

// Unlimited returns an elastic quota without a per-category cap: the category may
// borrow every idle, unreserved worker.
func Unlimited() *Quota { return newQuota(math.MaxInt32) }

// TryAcquire takes one slot. It reports false when no slot is left.
func (q *Quota) TryAcquire() bool {
	for {
		cur := q.cur.Load()
		if cur <= 0 {
			return false
		}
		if q.cur.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

// Release hands one slot back. It reports false when every slot is already free,
// which means the caller released a slot it never acquired.
func (q *Quota) Release() bool {
	for {
		cur := q.cur.Load()
		if cur >= q.max {
			return false
		}
		if q.cur.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Available returns the number of free slots.
func (q *Quota) Available() int { return int(q.cur.Load()) }

// Max returns the configured number of slots.
func (q *Quota) Max() int { return int(q.max) }

func (q *Quota) validate(name string) error {
	if q == nil {
		return errorc.With(ErrInvalidArgument, errorc.String(name, "nil quota"))
	}
	if q.max < 0 {
		return errorc.With(
			ErrInvalidArgument,
			errorc.String(name, "quota should not be less than 0, got "+strconv.FormatInt(q.max, 10)),
		)
	}
	return nil
}

// bind marks the quota as owned by one registration.
func (q *Quota) bind() bool { return q.bound.CompareAndSwap(false, true) }
