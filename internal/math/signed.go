// Package math implements 256-bit checked arithmetic for vault accounting.
//
// Unsigned values are *uint256.Int. Signed values are a magnitude plus a
// sign flag rather than two's complement, so the unsigned magnitude is
// always directly available. Every operation that can wrap returns an
// explicit error instead of a wrapped result.
package math

import (
	"github.com/holiman/uint256"
)

var (
	// tt255 is 2^255, the magnitude of the most negative representable value.
	tt255 = new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	// tt255m1 is 2^255 - 1, the largest positive magnitude.
	tt255m1 = new(uint256.Int).Sub(tt255, uint256.NewInt(1))
)

// Signed is a 256-bit signed integer in magnitude-sign form.
//
// Range is [-(2^255), 2^255 - 1]: one more negative value than positive,
// matching two's-complement width. Zero is canonical: a zero magnitude
// always carries a positive sign, so Signed values compare with ==.
type Signed struct {
	mag uint256.Int
	neg bool
}

// NewSigned builds a Signed from a magnitude and a sign. A zero magnitude
// yields positive zero regardless of the requested sign. Magnitudes beyond
// the range bound for the requested sign (2^255 - 1 positive, 2^255
// negative) fail with ErrOverflow.
func NewSigned(magnitude *uint256.Int, negative bool) (Signed, error) {
	if magnitude.IsZero() {
		return Signed{}, nil
	}
	bound := tt255m1
	if negative {
		bound = tt255
	}
	if magnitude.Gt(bound) {
		return Signed{}, ErrOverflow
	}
	var s Signed
	s.mag.Set(magnitude)
	s.neg = negative
	return s, nil
}

// MaxSigned returns the largest representable value, 2^255 - 1.
func MaxSigned() Signed {
	var s Signed
	s.mag.Set(tt255m1)
	return s
}

// MinSigned returns the smallest representable value, -(2^255).
func MinSigned() Signed {
	var s Signed
	s.mag.Set(tt255)
	s.neg = true
	return s
}

// Unsigned converts s to an unsigned 256-bit value. Negative values fail
// with ErrNegativeValue; zero and positive values always convert.
func (s Signed) Unsigned() (*uint256.Int, error) {
	if s.neg {
		return nil, ErrNegativeValue
	}
	return new(uint256.Int).Set(&s.mag), nil
}

// Magnitude returns a copy of the absolute value of s.
func (s Signed) Magnitude() *uint256.Int {
	return new(uint256.Int).Set(&s.mag)
}

// Negative reports whether s is strictly below zero.
func (s Signed) Negative() bool {
	return s.neg
}

// IsZero reports whether s is zero.
func (s Signed) IsZero() bool {
	return s.mag.IsZero()
}

// Sign returns -1 for negative values, 0 for zero, and 1 for positive values.
func (s Signed) Sign() int {
	if s.mag.IsZero() {
		return 0
	}
	if s.neg {
		return -1
	}
	return 1
}

// Eq reports whether s and other hold the same value.
func (s Signed) Eq(other Signed) bool {
	return s.neg == other.neg && s.mag.Eq(&other.mag)
}

// String renders s as a decimal string with a leading minus for negatives.
func (s Signed) String() string {
	if s.neg {
		return "-" + s.mag.Dec()
	}
	return s.mag.Dec()
}
