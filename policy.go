package central

import (
	"strconv"

	"github.com/ygrebnov/errorc"
)

// Policy selects how an Executor admits tasks. It is fixed at construction.
type Policy int

const (
	// Pessimistic admits a task only on its category's reserved slots.
	// Workers outside a category's reservation are never lent to it, even when idle,
	// and tasks of unregistered categories are rejected.
	Pessimistic Policy = iota

	// Optimistic admits a task on its reserved slots first and then, while the pool
	// has workers not covered by any reservation, on its elastic slots.
	// Tasks of unregistered categories start at once on an idle unreserved worker
	// when no quota-bearing task is waiting; otherwise they queue behind every
	// quota-bearing task.
	Optimistic
)

func (p Policy) String() string {
	switch p {
	case Pessimistic:
		return "Pessimistic"
	case Optimistic:
		return "Optimistic"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

func (p Policy) valid() bool { return p == Pessimistic || p == Optimistic }

// submitter is the quota pair bound to one registered category.
type submitter struct {
	reserve *Quota
	elastic *Quota
}

// capacity is the executor-wide state a policy may consult.
type capacity interface {
	// tryBorrow takes one worker not covered by any reservation.
	tryBorrow() bool
	// giveBack returns a worker taken by tryBorrow.
	giveBack()
	// unreservedFree is the number of workers tryBorrow could still take.
	unreservedFree() int
	// quotaWaiting reports whether a quota-bearing task is queued.
	quotaWaiting() bool
}

type outcome uint8

const (
	admitNow outcome = iota
	enqueue
	reject
)

func (o outcome) String() string {
	switch o {
	case admitNow:
		return "admitted"
	case enqueue:
		return "queued"
	default:
		return "rejected"
	}
}

// decision is the result of one admission attempt. When outcome is admitNow the
// caller owns slot (if any) and the borrowed worker (if borrowed) until the task completes.
type decision struct {
	outcome  outcome
	slot     *Quota
	borrowed bool
	priority int
	err      error
}

// validate checks a quota pair before it is bound to a category.
func (p Policy) validate(reserve, secondary *Quota) error {
	if err := reserve.validate("reserve"); err != nil {
		return err
	}
	if err := secondary.validate("elastic"); err != nil {
		return err
	}
	switch p {
	case Pessimistic:
		if reserve.Max() == 0 {
			return errorc.With(
				ErrInvalidConfiguration,
				errorc.String("reserve", "reservation will never execute in pessimism"),
			)
		}
	case Optimistic:
		if reserve.Max() == 0 && secondary.Max() == 0 {
			return errorc.With(
				ErrInvalidConfiguration,
				errorc.String("reserve", "category without reserve and elastic quota will never execute"),
			)
		}
	}
	return nil
}

// decide chooses between admitting, queueing and rejecting a task.
// s is nil for tasks of unregistered categories.
func (p Policy) decide(s *submitter, c capacity) decision {
	if s == nil {
		return p.decideDefault(c)
	}

	if s.reserve.TryAcquire() {
		return decision{outcome: admitNow, slot: s.reserve}
	}

	if p == Optimistic && c.unreservedFree() > 0 && s.elastic.TryAcquire() {
		if c.tryBorrow() {
			return decision{outcome: admitNow, slot: s.elastic, borrowed: true}
		}
		s.elastic.Release()
	}

	return decision{outcome: enqueue, priority: s.reserve.Max()}
}

func (p Policy) decideDefault(c capacity) decision {
	if p == Pessimistic {
		return decision{
			outcome: reject,
			err:     errorc.With(ErrRejectedExecution, errorc.String("policy", "unquotaed task can not be executed in pessimism")),
		}
	}
	if !c.quotaWaiting() && c.tryBorrow() {
		return decision{outcome: admitNow, borrowed: true}
	}
	return decision{outcome: enqueue, priority: lowestPriority}
}

// hasRoom reports, without taking anything, whether decide could admit a task now.
func (p Policy) hasRoom(s *submitter, c capacity) bool {
	if s == nil {
		return p == Optimistic && c.unreservedFree() > 0 && !c.quotaWaiting()
	}
	if s.reserve.Available() > 0 {
		return true
	}
	return p == Optimistic && s.elastic.Available() > 0 && c.unreservedFree() > 0
}
