// Package scaling converts token amounts between their native decimals and
// the canonical 18-decimal fixed-point representation used by pool math.
package scaling

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"balancerScope/internal/errs"
	"balancerScope/internal/fixedpoint"
)

// MaxDecimals is the precision of the canonical representation.
const MaxDecimals = 18

// TokenAmount is an upscaled 18-decimal value tagged with the native decimals
// of the token it belongs to.
type TokenAmount struct {
	Value    *uint256.Int
	Decimals uint8
}

// ScalingFactor returns 10^(18-decimals), the integer multiplier that lifts
// a native amount to 18 decimals.
func ScalingFactor(decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, errs.ErrInvalidDecimals
	}
	return pow10(MaxDecimals - decimals), nil
}

// FixedPointScalingFactor returns the scaling factor as an 18-decimal value,
// optionally multiplied by a token price rate, for use with UpscaleRaw and
// the Downscale functions. A nil rate means ONE.
func FixedPointScalingFactor(decimals uint8, priceRate *uint256.Int) (*uint256.Int, error) {
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return nil, err
	}
	factor, err = fixedpoint.Mul(factor, fixedpoint.One)
	if err != nil {
		return nil, err
	}
	if priceRate == nil {
		return factor, nil
	}
	return fixedpoint.MulDown(factor, priceRate)
}

// Upscale parses a human decimal string for a token with the given decimals
// and returns the 18-decimal value. Digits beyond the token precision are
// truncated.
func Upscale(amount string, decimals uint8) (*uint256.Int, error) {
	native, err := ParseNative(amount, decimals)
	if err != nil {
		return nil, err
	}
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Mul(native, factor)
}

// NewTokenAmount is Upscale returning a TokenAmount.
func NewTokenAmount(amount string, decimals uint8) (TokenAmount, error) {
	v, err := Upscale(amount, decimals)
	if err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{Value: v, Decimals: decimals}, nil
}

// Downscale converts an 18-decimal value back to a human decimal string in
// the token's precision, rounding up or down where digits are dropped.
func Downscale(amount *uint256.Int, decimals uint8, roundUp bool) (string, error) {
	factor, err := ScalingFactor(decimals)
	if err != nil {
		return "", err
	}
	native, err := fixedpoint.DivInt(amount, factor, roundUp)
	if err != nil {
		return "", err
	}
	return FormatNative(native, decimals), nil
}

// String renders the amount in the token's precision, rounding down.
func (a TokenAmount) String() string {
	if a.Value == nil {
		return "0"
	}
	s, err := Downscale(a.Value, a.Decimals, false)
	if err != nil {
		return a.Value.Dec()
	}
	return s
}

// UpscaleRaw scales a native integer amount by an 18-decimal factor,
// rounding down.
func UpscaleRaw(amount, factor *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.MulDown(amount, factor)
}

// DownscaleDown reverses UpscaleRaw rounding down.
func DownscaleDown(amount, factor *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.DivDown(amount, factor)
}

// DownscaleUp reverses UpscaleRaw rounding up.
func DownscaleUp(amount, factor *uint256.Int) (*uint256.Int, error) {
	return fixedpoint.DivUp(amount, factor)
}

// UpscaleArray applies UpscaleRaw element-wise.
func UpscaleArray(amounts, factors []*uint256.Int) ([]*uint256.Int, error) {
	return mapPairs(amounts, factors, UpscaleRaw)
}

// DownscaleDownArray applies DownscaleDown element-wise.
func DownscaleDownArray(amounts, factors []*uint256.Int) ([]*uint256.Int, error) {
	return mapPairs(amounts, factors, DownscaleDown)
}

// DownscaleUpArray applies DownscaleUp element-wise.
func DownscaleUpArray(amounts, factors []*uint256.Int) ([]*uint256.Int, error) {
	return mapPairs(amounts, factors, DownscaleUp)
}

func mapPairs(amounts, factors []*uint256.Int, fn func(a, f *uint256.Int) (*uint256.Int, error)) ([]*uint256.Int, error) {
	if len(amounts) != len(factors) {
		return nil, errs.ErrInputLengthMismatch
	}
	out := make([]*uint256.Int, len(amounts))
	for i := range amounts {
		v, err := fn(amounts[i], factors[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParseNative parses a human decimal string into the token's native integer
// units.
func ParseNative(amount string, decimals uint8) (*uint256.Int, error) {
	if decimals > MaxDecimals {
		return nil, errs.ErrInvalidDecimals
	}
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errs.ErrInvalidAmount
	}
	d, err := decimal.NewFromString(amount)
	if err != nil || d.IsNegative() {
		return nil, errs.ErrInvalidAmount
	}
	scaled := d.Truncate(int32(decimals)).Shift(int32(decimals))
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, errs.ErrInvalidAmount
	}
	return v, nil
}

// FormatNative renders a native integer amount as a decimal string.
func FormatNative(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value.ToBig(), -int32(decimals)).String()
}

// FormatFixed renders an 18-decimal value, such as a fee or a price, as a
// decimal string.
func FormatFixed(value *uint256.Int) string {
	return FormatNative(value, MaxDecimals)
}

// FormatSigned renders a signed 18-decimal value.
func FormatSigned(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -MaxDecimals).String()
}

// ParseFixed parses a human decimal string as an 18-decimal value.
func ParseFixed(amount string) (*uint256.Int, error) {
	return ParseNative(amount, MaxDecimals)
}

func pow10(n uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}
