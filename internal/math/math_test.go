package math_test

import (
	"errors"
	"testing"

	"TokenVault/internal/math"

	"github.com/holiman/uint256"
)

var (
	maxU256     = uint256.MustFromDecimal("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	pow255      = uint256.MustFromDecimal("57896044618658097711785492504343953926634992332820282019728792003956564819968")
	pow255Minus = uint256.MustFromDecimal("57896044618658097711785492504343953926634992332820282019728792003956564819967")
)

// ============================================================================
// Test: CeilDiv
// ============================================================================

func TestCeilDiv_ExactDivision(t *testing.T) {
	q, err := math.CeilDiv(uint256.NewInt(10), uint256.NewInt(5))
	if err != nil {
		t.Fatalf("CeilDiv failed: %v", err)
	}
	if !q.Eq(uint256.NewInt(2)) {
		t.Errorf("got %s, want 2", q)
	}
}

func TestCeilDiv_RoundsUp(t *testing.T) {
	q, err := math.CeilDiv(uint256.NewInt(7), uint256.NewInt(2))
	if err != nil {
		t.Fatalf("CeilDiv failed: %v", err)
	}
	if !q.Eq(uint256.NewInt(4)) {
		t.Errorf("got %s, want 4", q)
	}
}

func TestCeilDiv_ZeroNumerator(t *testing.T) {
	q, err := math.CeilDiv(uint256.NewInt(0), uint256.NewInt(9))
	if err != nil {
		t.Fatalf("CeilDiv failed: %v", err)
	}
	if !q.IsZero() {
		t.Errorf("got %s, want 0", q)
	}
}

func TestCeilDiv_DivisionByZero(t *testing.T) {
	_, err := math.CeilDiv(uint256.NewInt(7), uint256.NewInt(0))
	if !errors.Is(err, math.ErrDivisionByZero) {
		t.Errorf("got %v, want ErrDivisionByZero", err)
	}
}

func TestCeilDiv_QuotientBounds(t *testing.T) {
	// ceil(a/b) is the smallest q with q*b >= a.
	cases := []struct{ a, b uint64 }{
		{1, 1}, {1, 2}, {99, 10}, {100, 10}, {101, 10}, {7, 3}, {1_000_000, 7},
	}
	for _, c := range cases {
		a := uint256.NewInt(c.a)
		b := uint256.NewInt(c.b)
		q, err := math.CeilDiv(a, b)
		if err != nil {
			t.Fatalf("CeilDiv(%d, %d) failed: %v", c.a, c.b, err)
		}
		covered := new(uint256.Int).Mul(q, b)
		if covered.Lt(a) {
			t.Errorf("CeilDiv(%d, %d) = %s: q*b = %s < a", c.a, c.b, q, covered)
		}
		if !q.IsZero() {
			prev := new(uint256.Int).Sub(q, uint256.NewInt(1))
			short := new(uint256.Int).Mul(prev, b)
			if !short.Lt(a) {
				t.Errorf("CeilDiv(%d, %d) = %s: (q-1)*b = %s >= a, not minimal", c.a, c.b, q, short)
			}
		}
	}
}

func TestCeilDiv_MaxByOne(t *testing.T) {
	// b = 1 keeps the intermediate at a, so the full range divides cleanly.
	q, err := math.CeilDiv(maxU256, uint256.NewInt(1))
	if err != nil {
		t.Fatalf("CeilDiv failed: %v", err)
	}
	if !q.Eq(maxU256) {
		t.Errorf("got %s, want max", q)
	}
}

func TestCeilDiv_IntermediateOverflow(t *testing.T) {
	// a + b - 1 exceeds 2^256 - 1 even though the quotient itself would fit.
	_, err := math.CeilDiv(maxU256, uint256.NewInt(2))
	if !errors.Is(err, math.ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

// ============================================================================
// Test: CeilDivSigned
// ============================================================================

func TestCeilDivSigned_PositiveRoundsUp(t *testing.T) {
	a, _ := math.NewSigned(uint256.NewInt(7), false)
	q, err := math.CeilDivSigned(a, uint256.NewInt(2))
	if err != nil {
		t.Fatalf("CeilDivSigned failed: %v", err)
	}
	if q.Negative() || !q.Magnitude().Eq(uint256.NewInt(4)) {
		t.Errorf("got %s, want 4", q)
	}
}

func TestCeilDivSigned_NegativeRoundsAwayFromZero(t *testing.T) {
	// Ceiling applies to the magnitude: -7/2 gives -4, not -3.
	a, _ := math.NewSigned(uint256.NewInt(7), true)
	q, err := math.CeilDivSigned(a, uint256.NewInt(2))
	if err != nil {
		t.Fatalf("CeilDivSigned failed: %v", err)
	}
	if !q.Negative() || !q.Magnitude().Eq(uint256.NewInt(4)) {
		t.Errorf("got %s, want -4", q)
	}
}

func TestCeilDivSigned_DivisionByZero(t *testing.T) {
	a, _ := math.NewSigned(uint256.NewInt(7), true)
	_, err := math.CeilDivSigned(a, uint256.NewInt(0))
	if !errors.Is(err, math.ErrDivisionByZero) {
		t.Errorf("got %v, want ErrDivisionByZero", err)
	}
}

func TestCeilDivSigned_ZeroStaysCanonical(t *testing.T) {
	zero, _ := math.NewSigned(uint256.NewInt(0), true)
	q, err := math.CeilDivSigned(zero, uint256.NewInt(5))
	if err != nil {
		t.Fatalf("CeilDivSigned failed: %v", err)
	}
	if q.Negative() || !q.IsZero() {
		t.Errorf("got %s, want canonical zero", q)
	}
}

// ============================================================================
// Test: Signed construction and conversion
// ============================================================================

func TestNewSigned_CanonicalZero(t *testing.T) {
	negZero, err := math.NewSigned(uint256.NewInt(0), true)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}
	posZero, err := math.NewSigned(uint256.NewInt(0), false)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}
	if negZero.Negative() {
		t.Error("zero built with a negative sign should normalize to positive")
	}
	if !negZero.Eq(posZero) {
		t.Error("the two zeros should be equal")
	}
	if negZero.Sign() != 0 {
		t.Errorf("Sign() = %d, want 0", negZero.Sign())
	}
}

func TestNewSigned_AsymmetricBounds(t *testing.T) {
	// One more negative value than positive: +.. 2^255-1 but down to -(2^255).
	if _, err := math.NewSigned(pow255Minus, false); err != nil {
		t.Errorf("2^255-1 positive should be representable: %v", err)
	}
	if _, err := math.NewSigned(pow255, false); !errors.Is(err, math.ErrOverflow) {
		t.Errorf("2^255 positive: got %v, want ErrOverflow", err)
	}
	if _, err := math.NewSigned(pow255, true); err != nil {
		t.Errorf("2^255 negative should be representable: %v", err)
	}
	over := new(uint256.Int).Add(pow255, uint256.NewInt(1))
	if _, err := math.NewSigned(over, true); !errors.Is(err, math.ErrOverflow) {
		t.Errorf("2^255+1 negative: got %v, want ErrOverflow", err)
	}
}

func TestMaxMinSigned_Values(t *testing.T) {
	max := math.MaxSigned()
	if max.Negative() || !max.Magnitude().Eq(pow255Minus) {
		t.Errorf("MaxSigned = %s, want 2^255-1", max)
	}
	min := math.MinSigned()
	if !min.Negative() || !min.Magnitude().Eq(pow255) {
		t.Errorf("MinSigned = %s, want -(2^255)", min)
	}
	// |min| = |max| + 1
	diff := new(uint256.Int).Sub(min.Magnitude(), max.Magnitude())
	if !diff.Eq(uint256.NewInt(1)) {
		t.Errorf("|min| - |max| = %s, want 1", diff)
	}
}

func TestUnsigned_RoundTrip(t *testing.T) {
	s, err := math.NewSigned(uint256.NewInt(5), false)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}
	u, err := s.Unsigned()
	if err != nil {
		t.Fatalf("Unsigned failed: %v", err)
	}
	if !u.Eq(uint256.NewInt(5)) {
		t.Errorf("got %s, want 5", u)
	}
}

func TestUnsigned_NegativeRejected(t *testing.T) {
	s, err := math.NewSigned(uint256.NewInt(5), true)
	if err != nil {
		t.Fatalf("NewSigned failed: %v", err)
	}
	if _, err := s.Unsigned(); !errors.Is(err, math.ErrNegativeValue) {
		t.Errorf("got %v, want ErrNegativeValue", err)
	}
}

func TestSigned_String(t *testing.T) {
	s, _ := math.NewSigned(uint256.NewInt(1250), true)
	if s.String() != "-1250" {
		t.Errorf("got %q, want %q", s.String(), "-1250")
	}
	z, _ := math.NewSigned(uint256.NewInt(0), true)
	if z.String() != "0" {
		t.Errorf("got %q, want %q", z.String(), "0")
	}
}

// ============================================================================
// Test: AddSignedToUint
// ============================================================================

func TestAddSignedToUint_PositiveDelta(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(50), false)
	sum, err := math.AddSignedToUint(uint256.NewInt(100), b)
	if err != nil {
		t.Fatalf("AddSignedToUint failed: %v", err)
	}
	if !sum.Eq(uint256.NewInt(150)) {
		t.Errorf("got %s, want 150", sum)
	}
}

func TestAddSignedToUint_NegativeDelta(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(30), true)
	sum, err := math.AddSignedToUint(uint256.NewInt(100), b)
	if err != nil {
		t.Fatalf("AddSignedToUint failed: %v", err)
	}
	if !sum.Eq(uint256.NewInt(70)) {
		t.Errorf("got %s, want 70", sum)
	}
}

func TestAddSignedToUint_ExactToZero(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(100), true)
	sum, err := math.AddSignedToUint(uint256.NewInt(100), b)
	if err != nil {
		t.Fatalf("AddSignedToUint failed: %v", err)
	}
	if !sum.IsZero() {
		t.Errorf("got %s, want 0", sum)
	}
}

func TestAddSignedToUint_Underflow(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(101), true)
	_, err := math.AddSignedToUint(uint256.NewInt(100), b)
	if !errors.Is(err, math.ErrUnderflow) {
		t.Errorf("got %v, want ErrUnderflow", err)
	}
}

func TestAddSignedToUint_Overflow(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(1), false)
	_, err := math.AddSignedToUint(maxU256, b)
	if !errors.Is(err, math.ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

// ============================================================================
// Test: AddUintToSigned
// ============================================================================

func TestAddUintToSigned_NetNegative(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(250), true)
	sum, err := math.AddUintToSigned(uint256.NewInt(100), b)
	if err != nil {
		t.Fatalf("AddUintToSigned failed: %v", err)
	}
	if !sum.Negative() || !sum.Magnitude().Eq(uint256.NewInt(150)) {
		t.Errorf("got %s, want -150", sum)
	}
}

func TestAddUintToSigned_NetPositive(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(40), true)
	sum, err := math.AddUintToSigned(uint256.NewInt(100), b)
	if err != nil {
		t.Fatalf("AddUintToSigned failed: %v", err)
	}
	if sum.Negative() || !sum.Magnitude().Eq(uint256.NewInt(60)) {
		t.Errorf("got %s, want 60", sum)
	}
}

func TestAddUintToSigned_MinPlusZero(t *testing.T) {
	sum, err := math.AddUintToSigned(uint256.NewInt(0), math.MinSigned())
	if err != nil {
		t.Fatalf("AddUintToSigned failed: %v", err)
	}
	if !sum.Eq(math.MinSigned()) {
		t.Errorf("got %s, want MinSigned", sum)
	}
}

func TestAddUintToSigned_CancelsToBoundary(t *testing.T) {
	// 2^255 + (-1) lands exactly on the positive bound.
	b, _ := math.NewSigned(uint256.NewInt(1), true)
	sum, err := math.AddUintToSigned(pow255, b)
	if err != nil {
		t.Fatalf("AddUintToSigned failed: %v", err)
	}
	if sum.Negative() || !sum.Magnitude().Eq(pow255Minus) {
		t.Errorf("got %s, want 2^255-1", sum)
	}
}

func TestAddUintToSigned_PositiveOverflow(t *testing.T) {
	b, _ := math.NewSigned(uint256.NewInt(1), false)
	_, err := math.AddUintToSigned(pow255Minus, b)
	if !errors.Is(err, math.ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

func TestAddUintToSigned_WideUnsignedOverflows(t *testing.T) {
	// An unsigned value above 2^255-1 has no signed representation.
	zero, _ := math.NewSigned(uint256.NewInt(0), false)
	_, err := math.AddUintToSigned(maxU256, zero)
	if !errors.Is(err, math.ErrOverflow) {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}

// ============================================================================
// Test: AbsDiff / CheckedSub
// ============================================================================

func TestAbsDiff_Symmetry(t *testing.T) {
	a := uint256.NewInt(1250)
	b := uint256.NewInt(1000)
	ab := math.AbsDiff(a, b)
	ba := math.AbsDiff(b, a)
	if !ab.Eq(ba) {
		t.Errorf("AbsDiff not symmetric: %s vs %s", ab, ba)
	}
	if !ab.Eq(uint256.NewInt(250)) {
		t.Errorf("got %s, want 250", ab)
	}
}

func TestAbsDiff_Identical(t *testing.T) {
	x := uint256.NewInt(42)
	if d := math.AbsDiff(x, x); !d.IsZero() {
		t.Errorf("got %s, want 0", d)
	}
}

func TestAbsDiff_FullRange(t *testing.T) {
	d := math.AbsDiff(uint256.NewInt(0), maxU256)
	if !d.Eq(maxU256) {
		t.Errorf("got %s, want max", d)
	}
}

func TestCheckedSub_Normal(t *testing.T) {
	d, err := math.CheckedSub(uint256.NewInt(10), uint256.NewInt(3))
	if err != nil {
		t.Fatalf("CheckedSub failed: %v", err)
	}
	if !d.Eq(uint256.NewInt(7)) {
		t.Errorf("got %s, want 7", d)
	}
}

func TestCheckedSub_Underflow(t *testing.T) {
	_, err := math.CheckedSub(uint256.NewInt(3), uint256.NewInt(10))
	if !errors.Is(err, math.ErrUnderflow) {
		t.Errorf("got %v, want ErrUnderflow", err)
	}
}

// ============================================================================
// Test: IntPow
// ============================================================================

func TestIntPow_ZeroExponent(t *testing.T) {
	for _, base := range []uint64{0, 1, 2, 12345} {
		got, err := math.IntPow(base, 0)
		if err != nil {
			t.Fatalf("IntPow(%d, 0) failed: %v", base, err)
		}
		if got != 1 {
			t.Errorf("IntPow(%d, 0) = %d, want 1", base, got)
		}
	}
}

func TestIntPow_ZeroBase(t *testing.T) {
	got, err := math.IntPow(0, 5)
	if err != nil {
		t.Fatalf("IntPow failed: %v", err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestIntPow_KnownValues(t *testing.T) {
	cases := []struct {
		base uint64
		exp  uint
		want uint64
	}{
		{2, 10, 1024},
		{3, 4, 81},
		{10, 18, 1_000_000_000_000_000_000},
		{2, 63, 1 << 63},
		{7, 1, 7},
	}
	for _, c := range cases {
		got, err := math.IntPow(c.base, c.exp)
		if err != nil {
			t.Fatalf("IntPow(%d, %d) failed: %v", c.base, c.exp, err)
		}
		if got != c.want {
			t.Errorf("IntPow(%d, %d) = %d, want %d", c.base, c.exp, got, c.want)
		}
	}
}

func TestIntPow_Overflow(t *testing.T) {
	if _, err := math.IntPow(2, 64); !errors.Is(err, math.ErrOverflow) {
		t.Errorf("2^64: got %v, want ErrOverflow", err)
	}
	if _, err := math.IntPow(10, 20); !errors.Is(err, math.ErrOverflow) {
		t.Errorf("10^20: got %v, want ErrOverflow", err)
	}
}

func TestIntPow_NoSpuriousSquareOverflow(t *testing.T) {
	// exp = 1 never squares, so a base whose square would overflow still works.
	base := uint64(1) << 32
	got, err := math.IntPow(base, 1)
	if err != nil {
		t.Fatalf("IntPow failed: %v", err)
	}
	if got != base {
		t.Errorf("got %d, want %d", got, base)
	}
}
