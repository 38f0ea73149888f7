package tree

import (
	"errors"
	"fmt"
)

var ErrArityViolation = errors.New("arity violation")

type ArityKind int

const (
	ArityMaximumExceeded ArityKind = iota
	ArityMinimumViolated
	ArityInvalidCount
)

func (k ArityKind) String() string {
	switch k {
	case ArityMaximumExceeded:
		return "maximum exceeded"
	case ArityMinimumViolated:
		return "minimum violated"
	default:
		return "invalid count"
	}
}

// ArityError reports a mutation that would break a symbol's arity bounds.
type ArityError struct {
	Kind   ArityKind
	Symbol string
	Count  int
	Min    int
	Max    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s for symbol %s: count=%d arity=[%d,%d]", ErrArityViolation, e.Kind, e.Symbol, e.Count, e.Min, e.Max)
}

func (e *ArityError) Unwrap() error {
	return ErrArityViolation
}
