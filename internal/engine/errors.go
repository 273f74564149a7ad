package engine

import (
	"errors"
	"fmt"
)

// ErrStopped is returned when a signal arrives while the engine is stopped.
var ErrStopped = errors.New("engine: not running")

// RejectionError is a policy rejection from the risk gate. It is terminal
// for the signal but not exceptional: callers surface it as a "rejected"
// response, not a failure.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return e.Reason }

// IsRejection reports whether err is a gate rejection.
func IsRejection(err error) bool {
	var r *RejectionError
	return errors.As(err, &r)
}

// SizingError means the computed order amount cannot satisfy the exchange's
// minimum order value.
type SizingError struct {
	Symbol string
	Amount float64
	Floor  float64
}

func (e *SizingError) Error() string {
	return fmt.Sprintf("order amount %v for %s below minimum %v", e.Amount, e.Symbol, e.Floor)
}
