// Package fixedpoint implements 18-decimal fixed-point arithmetic on unsigned
// 256-bit integers, mirroring the on-chain FixedPoint and Math libraries.
//
// No function mutates its arguments; every result is a freshly allocated
// value. Overflow beyond 256 bits is reported explicitly instead of wrapping.
package fixedpoint

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	"balancerScope/internal/logexp"
)

// Shared constants. They must not be modified.
var (
	Zero = uint256.NewInt(0)
	One  = uint256.NewInt(1e18)
	Two  = uint256.NewInt(2e18)

	// MaxPowRelativeError is the relative error band applied around Pow (1e-14).
	MaxPowRelativeError = uint256.NewInt(10000)

	// MinPowBaseFreeExponent is the smallest base for which powers with an
	// exponent above one stay within the log/exp engine's precision.
	MinPowBaseFreeExponent = uint256.NewInt(0.7e18)
)

// New returns an integer set to v.
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Parse reads a base-10 integer string.
func Parse(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errs.ErrInvalidAmount
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) *uint256.Int {
	v, err := Parse(s)
	if err != nil {
		panic("fixedpoint: invalid integer " + s)
	}
	return v
}

// Add returns a + b, failing on 256-bit overflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, errs.ErrAddOverflow
	}
	return z, nil
}

// Sub returns a - b, failing when b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if b.Gt(a) {
		return nil, errs.ErrSubOverflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// Mul returns the plain integer product a * b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, errs.ErrMulOverflow
	}
	return z, nil
}

// DivDownInt returns floor(a / b) on plain integers.
func DivDownInt(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errs.ErrZeroDivision
	}
	return new(uint256.Int).Div(a, b), nil
}

// DivUpInt returns ceil(a / b) on plain integers.
func DivUpInt(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errs.ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	z := new(uint256.Int).Sub(a, uint256.NewInt(1))
	z.Div(z, b)
	return z.AddUint64(z, 1), nil
}

// DivInt divides plain integers rounding in the requested direction.
func DivInt(a, b *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if roundUp {
		return DivUpInt(a, b)
	}
	return DivDownInt(a, b)
}

// MulDown returns floor(a * b / ONE).
func MulDown(a, b *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	return product.Div(product, One), nil
}

// MulUp returns ceil(a * b / ONE) without overflowing in the rounding step.
func MulUp(a, b *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(a, b)
	if err != nil {
		return nil, err
	}
	if product.IsZero() {
		return product, nil
	}
	product.SubUint64(product, 1)
	product.Div(product, One)
	return product.AddUint64(product, 1), nil
}

// DivDown returns floor(a * ONE / b).
func DivDown(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errs.ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return nil, err
	}
	return inflated.Div(inflated, b), nil
}

// DivUp returns ceil(a * ONE / b).
func DivUp(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, errs.ErrZeroDivision
	}
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	inflated, err := Mul(a, One)
	if err != nil {
		return nil, err
	}
	inflated.SubUint64(inflated, 1)
	inflated.Div(inflated, b)
	return inflated.AddUint64(inflated, 1), nil
}

// PowDown returns x^y shifted down by the log/exp error band, so the result
// never exceeds the exact power.
func PowDown(x, y *uint256.Int) (*uint256.Int, error) {
	raw, maxError, err := powWithError(x, y)
	if err != nil {
		return nil, err
	}
	if raw.Lt(maxError) {
		return new(uint256.Int), nil
	}
	return raw.Sub(raw, maxError), nil
}

// PowUp returns x^y shifted up by the log/exp error band, so the result is
// never below the exact power.
func PowUp(x, y *uint256.Int) (*uint256.Int, error) {
	raw, maxError, err := powWithError(x, y)
	if err != nil {
		return nil, err
	}
	return Add(raw, maxError)
}

func powWithError(x, y *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	raw, err := logexp.Pow(x, y)
	if err != nil {
		return nil, nil, err
	}
	maxError, err := MulUp(raw, MaxPowRelativeError)
	if err != nil {
		return nil, nil, err
	}
	maxError, err = Add(maxError, uint256.NewInt(1))
	if err != nil {
		return nil, nil, err
	}
	return raw, maxError, nil
}

// Complement returns ONE - x, clamped at zero.
func Complement(x *uint256.Int) *uint256.Int {
	if x.Lt(One) {
		return new(uint256.Int).Sub(One, x)
	}
	return new(uint256.Int)
}

// Max returns a copy of the larger of a and b.
func Max(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return b.Clone()
	}
	return a.Clone()
}

// Min returns a copy of the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return b.Clone()
	}
	return a.Clone()
}

// Sum adds all values, failing on overflow.
func Sum(values []*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, v := range values {
		next, err := Add(total, v)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// Clone deep-copies a slice of values.
func Clone(values []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = v.Clone()
	}
	return out
}
