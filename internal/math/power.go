package math

import "math/bits"

// IntPow computes base**exp by repeated squaring. IntPow(x, 0) is 1 for
// every x, including 0. Any intermediate product that does not fit in 64
// bits fails with ErrOverflow; results are never silently truncated.
func IntPow(base uint64, exp uint) (uint64, error) {
	result := uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			hi, lo := bits.Mul64(result, base)
			if hi != 0 {
				return 0, ErrOverflow
			}
			result = lo
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		// Only square while higher bits remain, so a final oversized
		// square that the result never uses cannot fail the call.
		hi, lo := bits.Mul64(base, base)
		if hi != 0 {
			return 0, ErrOverflow
		}
		base = lo
	}
	return result, nil
}
