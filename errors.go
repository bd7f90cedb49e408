package central

import "errors"

const Namespace = "central"

var (
	ErrInvalidArgument      = errors.New(Namespace + ": invalid argument")
	ErrInvalidConfiguration = errors.New(Namespace + ": invalid configuration")
	ErrAlreadyRegistered    = errors.New(Namespace + ": category already registered")
	ErrRejectedExecution    = errors.New(Namespace + ": task rejected")
	ErrShutdown             = errors.New(Namespace + ": executor is shut down")
	ErrNilTask              = errors.New(Namespace + ": task is nil")
	ErrTaskPanicked         = errors.New(Namespace + ": task execution panicked")
)

// errQueueClosed is returned by a blocking pop on a closed wait queue.
// The executor never pops blockingly, so it does not reach callers.
var errQueueClosed = errors.New(Namespace + ": wait queue closed")
