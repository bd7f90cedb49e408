package central

import (
	"errors"
	"fmt"
)

// CategoryError exposes the category of the task that failed.
// Errors passed to the handler configured with WithErrorHandler implement it.
type CategoryError interface {
	error
	Unwrap() error
	Category() (any, bool)
}

type categoryTaggedError struct {
	err        error
	category   any
	registered bool
}

func newCategoryTaggedError(err error, category any, registered bool) error {
	if err == nil {
		return nil
	}
	return &categoryTaggedError{err: err, category: category, registered: registered}
}

func (e *categoryTaggedError) Error() string { return e.err.Error() }
func (e *categoryTaggedError) Unwrap() error { return e.err }

// Category returns the category key and whether it had a registered quota.
func (e *categoryTaggedError) Category() (any, bool) { return e.category, e.registered }

func (e *categoryTaggedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = fmt.Fprintf(s, "%+v (category=%v registered=%t)", e.err, e.category, e.registered)
			return
		}
		fallthrough
	case 's':
		_, _ = fmt.Fprint(s, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(s, "%q", e.Error())
	}
}

// ExtractCategory returns the category of the failed task if err carries one.
func ExtractCategory(err error) (any, bool) {
	var ce CategoryError
	if errors.As(err, &ce) {
		c, _ := ce.Category()
		return c, true
	}
	return nil, false
}
