package emu

import "fmt"

// InvariantViolation is the panic value raised when the simulator reaches a
// state a correctly decoded stream can never produce. It is not recoverable.
type InvariantViolation struct {
	What string
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", v.What)
}

// Violate panics with an InvariantViolation.
func Violate(format string, args ...any) {
	panic(InvariantViolation{What: fmt.Sprintf(format, args...)})
}
