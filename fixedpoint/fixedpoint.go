// Package fixedpoint implements the scale-S decimal domain that every
// monetary and rate value in the pool uses. S = 10^7, matching the wire
// contract. Values are carried on an arbitrary-precision integer so
// intermediate products never truncate before the final checked cast back
// into the signed 128-bit range the contract promises; MulDiv is exactly the
// "a*b/c with a wider intermediate" operation the rest of the engine builds
// on.
package fixedpoint

import (
	"errors"
	"math/big"
)

// Scale is S, the number of implicit decimals every Fp carries.
const Scale = 10_000_000

// ErrMathOverflow is returned when a checked operation's result does not fit
// in the signed 128-bit domain, or when a division's divisor is zero.
var ErrMathOverflow = errors.New("fixedpoint: math overflow")

var (
	scale = big.NewInt(Scale)
	// maxFp/minFp bound the signed 128-bit range: [-2^127, 2^127-1].
	maxFp = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minFp = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// Fp is a signed fixed-point value scaled by Scale.
type Fp struct {
	v *big.Int
}

// Zero is 0 in the scale-S domain.
func Zero() Fp { return Fp{v: big.NewInt(0)} }

// One is 1.0 in the scale-S domain, i.e. the integer Scale.
func One() Fp { return Fp{v: new(big.Int).Set(scale)} }

// Infinity is the saturating maximum representable value, used to stand in
// for "+infinity" when a health factor has no debt to divide by.
func Infinity() Fp { return Fp{v: new(big.Int).Set(maxFp)} }

// FromRaw wraps an already-scaled integer as an Fp.
func FromRaw(v *big.Int) Fp {
	if v == nil {
		return Zero()
	}
	return Fp{v: new(big.Int).Set(v)}
}

// FromInt64 scales a whole number into the fixed-point domain (e.g.
// FromInt64(4) represents the integer 4, not 4*Scale; use FromUnits for a
// pre-scaled raw value expressed in human units times Scale).
func FromInt64(n int64) Fp {
	return Fp{v: new(big.Int).Mul(big.NewInt(n), scale)}
}

// FromUnits constructs an Fp directly from its scale-S integer
// representation, e.g. FromUnits(4_000_000) is 0.4 in human terms.
func FromUnits(units int64) Fp { return Fp{v: big.NewInt(units)} }

// Raw returns a's underlying scale-S integer.
func (a Fp) Raw() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.v)
}

// Sign returns -1, 0, or 1 following a's sign.
func (a Fp) Sign() int {
	if a.v == nil {
		return 0
	}
	return a.v.Sign()
}

// Cmp compares a and b numerically.
func (a Fp) Cmp(b Fp) int { return a.int().Cmp(b.int()) }

// String renders the underlying scale-S integer.
func (a Fp) String() string { return a.int().String() }

func (a Fp) int() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

func checked(v *big.Int) (Fp, error) {
	if v.Cmp(maxFp) > 0 || v.Cmp(minFp) < 0 {
		return Fp{}, ErrMathOverflow
	}
	return Fp{v: v}, nil
}

// MulDivDown computes floor(a*b/c) over a 256-bit-capable intermediate,
// failing ErrMathOverflow if c is zero or the result does not fit in the
// signed 128-bit domain. Every non-negative operand combination used by the
// pool floors toward zero, which is what "round down" means here.
func MulDivDown(a, b, c Fp) (Fp, error) {
	if c.int().Sign() == 0 {
		return Fp{}, ErrMathOverflow
	}
	product := new(big.Int).Mul(a.int(), b.int())
	quotient := new(big.Int).Quo(product, c.int())
	return checked(quotient)
}

// MulDivUp computes ceil(a*b/c) over a 256-bit-capable intermediate. Used
// everywhere the rounding discipline favors the pool over the user: debt
// owed, shares burned on withdrawal, and seizure sizing.
func MulDivUp(a, b, c Fp) (Fp, error) {
	if c.int().Sign() == 0 {
		return Fp{}, ErrMathOverflow
	}
	product := new(big.Int).Mul(a.int(), b.int())
	divisor := c.int()
	quotient, remainder := new(big.Int).QuoRem(product, divisor, new(big.Int))
	if remainder.Sign() != 0 {
		// product and divisor are both non-negative throughout this engine's
		// domain, so a non-zero remainder always means we truncated down.
		quotient.Add(quotient, big.NewInt(1))
	}
	return checked(quotient)
}

// Mul computes a*b in the scale-S domain, rounding down.
func Mul(a, b Fp) (Fp, error) { return MulDivDown(a, b, Fp{v: scale}) }

// MulUp computes a*b in the scale-S domain, rounding up.
func MulUp(a, b Fp) (Fp, error) { return MulDivUp(a, b, Fp{v: scale}) }

// Div computes a/b in the scale-S domain, rounding down.
func Div(a, b Fp) (Fp, error) { return MulDivDown(a, Fp{v: scale}, b) }

// DivUp computes a/b in the scale-S domain, rounding up.
func DivUp(a, b Fp) (Fp, error) { return MulDivUp(a, Fp{v: scale}, b) }

// Add computes a+b, failing ErrMathOverflow on overflow.
func Add(a, b Fp) (Fp, error) { return checked(new(big.Int).Add(a.int(), b.int())) }

// Sub computes a-b, failing ErrMathOverflow on underflow.
func Sub(a, b Fp) (Fp, error) { return checked(new(big.Int).Sub(a.int(), b.int())) }

// Min returns the smaller of a and b.
func Min(a, b Fp) Fp {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b Fp) Fp {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Clamp restricts x to the closed interval [lo, hi].
func Clamp(x, lo, hi Fp) Fp {
	if x.Cmp(lo) < 0 {
		return lo
	}
	if x.Cmp(hi) > 0 {
		return hi
	}
	return x
}
