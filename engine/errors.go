package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyView is returned by every aggregate invoked on a zero-length view.
	// Callers short-circuit rendering instead of propagating degenerate values.
	ErrEmptyView = errors.New("no records match the active filters")

	// ErrUnknownColumn is returned when a predicate or aggregate names a column
	// the view does not carry (or carries with the wrong kind).
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidArgument covers malformed aggregate parameters such as a non-positive top-N limit.
	ErrInvalidArgument = errors.New("invalid argument")
)

// InvalidRangeError is returned when a range filter's low bound exceeds its high bound.
type InvalidRangeError struct {
	Column string
	Low    float64
	High   float64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range for %q: low %g exceeds high %g", e.Column, e.Low, e.High)
}

// IsRecoverable reports whether err is a filter/aggregation error the
// interaction loop should surface as a warning rather than abort on.
func IsRecoverable(err error) bool {
	var rangeErr *InvalidRangeError
	return errors.Is(err, ErrEmptyView) || errors.As(err, &rangeErr)
}
