package math

import (
	"github.com/holiman/uint256"
)

// CeilDiv computes ceil(a / b) as (a + b - 1) / b. It fails with
// ErrDivisionByZero when b is zero and with ErrOverflow when the
// intermediate a + b - 1 does not fit in 256 bits.
func CeilDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	// b >= 1, so b - 1 cannot borrow.
	bMinusOne := new(uint256.Int).Sub(b, uint256.NewInt(1))
	sum, carry := new(uint256.Int).AddOverflow(a, bMinusOne)
	if carry {
		return nil, ErrOverflow
	}
	return sum.Div(sum, b), nil
}

// CeilDivSigned ceiling-divides the magnitude of a by b and keeps a's sign,
// so rounding always moves away from zero: 7/2 -> 4 and -7/2 -> -4, never
// toward positive infinity. The result is canonicalized (zero is positive).
func CeilDivSigned(a Signed, b *uint256.Int) (Signed, error) {
	q, err := CeilDiv(&a.mag, b)
	if err != nil {
		return Signed{}, err
	}
	return NewSigned(q, a.neg)
}

// AddSignedToUint computes a + b where a is unsigned and b is signed,
// returning an unsigned result. A negative b with magnitude above a fails
// with ErrUnderflow; a positive b that carries past 2^256 - 1 fails with
// ErrOverflow.
func AddSignedToUint(a *uint256.Int, b Signed) (*uint256.Int, error) {
	if b.neg {
		diff, borrow := new(uint256.Int).SubOverflow(a, &b.mag)
		if borrow {
			return nil, ErrUnderflow
		}
		return diff, nil
	}
	sum, carry := new(uint256.Int).AddOverflow(a, &b.mag)
	if carry {
		return nil, ErrOverflow
	}
	return sum, nil
}

// AddUintToSigned computes a + b in the signed domain, widening the
// unsigned a. Results outside [-(2^255), 2^255 - 1] fail with ErrOverflow.
func AddUintToSigned(a *uint256.Int, b Signed) (Signed, error) {
	if b.neg {
		if b.mag.Gt(a) {
			// Net negative. Magnitude is at most 2^255, always in range.
			mag := new(uint256.Int).Sub(&b.mag, a)
			return NewSigned(mag, true)
		}
		mag := new(uint256.Int).Sub(a, &b.mag)
		return NewSigned(mag, false)
	}
	sum, carry := new(uint256.Int).AddOverflow(a, &b.mag)
	if carry {
		return Signed{}, ErrOverflow
	}
	return NewSigned(sum, false)
}

// AbsDiff returns |a - b|. It is total: defined for every pair of inputs.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Sub(b, a)
	}
	return new(uint256.Int).Sub(a, b)
}

// CheckedSub computes a - b, failing with ErrUnderflow when b exceeds a
// instead of wrapping modulo 2^256.
func CheckedSub(a, b *uint256.Int) (*uint256.Int, error) {
	diff, borrow := new(uint256.Int).SubOverflow(a, b)
	if borrow {
		return nil, ErrUnderflow
	}
	return diff, nil
}
