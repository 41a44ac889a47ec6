package math

import "errors"

// Arithmetic failure modes. Callers wrap these with operation context and
// match them with errors.Is.
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrNegativeValue  = errors.New("negative value not representable as unsigned")
)
