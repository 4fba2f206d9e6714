// Package logexp computes natural exponentials, logarithms and powers on
// signed 18-decimal fixed-point values, reproducing the on-chain LogExpMath
// library.
//
// The result of each function matches the contract output exactly; its
// precision against the true real-valued result is around 1e-18 relative.
// Intermediates live in 20- and 36-decimal fixed point and every division
// truncates toward zero like Solidity int256.
package logexp

import (
	"math/big"

	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
)

var (
	one18 = big.NewInt(1e18)
	one20 = mustBig("100000000000000000000")
	one36 = mustBig("1000000000000000000000000000000000000")

	// MaxNaturalExponent and MinNaturalExponent bound the argument of Exp.
	MaxNaturalExponent = mustBig("130000000000000000000")
	MinNaturalExponent = mustBig("-41000000000000000000")

	ln36LowerBound = big.NewInt(1e18 - 1e17)
	ln36UpperBound = big.NewInt(1e18 + 1e17)

	// MildExponentBound is 2^254 / 1e20; exponents at or above it are rejected.
	MildExponentBound = new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(1), 254), one20)

	xBound = new(big.Int).Lsh(big.NewInt(1), 255)

	hundred = big.NewInt(100)
	two     = big.NewInt(2)
)

// Decomposition constants. x0 and x1 are 18-decimal exponents whose powers
// a0 and a1 are stored without decimals. x2..x11 and a2..a11 carry 20 decimals.
var (
	x0 = mustBig("128000000000000000000")
	a0 = mustBig("38877084059945950922200000000000000000000000000000000000")
	x1 = mustBig("64000000000000000000")
	a1 = mustBig("6235149080811616882910000000")
)

type term struct {
	x, a *big.Int
}

var terms = []term{
	{mustBig("3200000000000000000000"), mustBig("7896296018268069516100000000000000")},
	{mustBig("1600000000000000000000"), mustBig("888611052050787263676000000")},
	{mustBig("800000000000000000000"), mustBig("298095798704172827474000")},
	{mustBig("400000000000000000000"), mustBig("5459815003314423907810")},
	{mustBig("200000000000000000000"), mustBig("738905609893065022723")},
	{mustBig("100000000000000000000"), mustBig("271828182845904523536")},
	{mustBig("50000000000000000000"), mustBig("164872127070012814685")},
	{mustBig("25000000000000000000"), mustBig("128402541668774148407")},
	{mustBig("12500000000000000000"), mustBig("113314845306682631683")},
	{mustBig("6250000000000000000"), mustBig("106449445891785942956")},
}

// expTerms is the number of decomposition steps used by Exp; the last two
// are only precise enough for the logarithm.
const expTerms = 8

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("logexp: bad constant " + s)
	}
	return v
}

// Pow returns x^y for unsigned 18-decimal fixed-point values, computed as
// exp(y * ln(x)).
func Pow(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return uint256.NewInt(1e18), nil
	}
	if x.IsZero() {
		return new(uint256.Int), nil
	}

	bx := x.ToBig()
	if bx.Cmp(xBound) >= 0 {
		return nil, errs.ErrXOutOfBounds
	}
	by := y.ToBig()
	if by.Cmp(MildExponentBound) >= 0 {
		return nil, errs.ErrYOutOfBounds
	}

	var logxTimesY *big.Int
	if inLn36Band(bx) {
		lnX := ln36(bx)
		// lnX has 36 decimals; split it so the product keeps 18 extra digits
		// without overflowing int256.
		q, r := new(big.Int).QuoRem(lnX, one18, new(big.Int))
		logxTimesY = q.Mul(q, by)
		r.Mul(r, by).Quo(r, one18)
		logxTimesY.Add(logxTimesY, r)
	} else {
		logxTimesY = ln(bx)
		logxTimesY.Mul(logxTimesY, by)
	}
	logxTimesY.Quo(logxTimesY, one18)

	if logxTimesY.Cmp(MinNaturalExponent) < 0 || logxTimesY.Cmp(MaxNaturalExponent) > 0 {
		return nil, errs.ErrProductOutOfBounds
	}

	res, err := Exp(logxTimesY)
	if err != nil {
		return nil, err
	}
	out, overflow := uint256.FromBig(res)
	if overflow {
		return nil, errs.ErrMulOverflow
	}
	return out, nil
}

// Exp returns e^x for a signed 18-decimal exponent in
// [MinNaturalExponent, MaxNaturalExponent].
func Exp(x *big.Int) (*big.Int, error) {
	if x.Cmp(MinNaturalExponent) < 0 || x.Cmp(MaxNaturalExponent) > 0 {
		return nil, errs.ErrInvalidExponent
	}
	if x.Sign() < 0 {
		// e^x = 1 / e^-x; the positive branch keeps better precision.
		inv, err := Exp(new(big.Int).Neg(x))
		if err != nil {
			return nil, err
		}
		num := new(big.Int).Mul(one18, one18)
		return num.Quo(num, inv), nil
	}

	x = new(big.Int).Set(x)

	firstAN := big.NewInt(1)
	switch {
	case x.Cmp(x0) >= 0:
		x.Sub(x, x0)
		firstAN = a0
	case x.Cmp(x1) >= 0:
		x.Sub(x, x1)
		firstAN = a1
	}

	x.Mul(x, hundred)

	product := new(big.Int).Set(one20)
	for _, t := range terms[:expTerms] {
		if x.Cmp(t.x) >= 0 {
			x.Sub(x, t.x)
			product.Mul(product, t.a).Quo(product, one20)
		}
	}

	// Taylor series for e^x with x < 0.25, 12 terms.
	seriesSum := new(big.Int).Set(one20)
	t := new(big.Int).Set(x)
	seriesSum.Add(seriesSum, t)
	for k := int64(2); k <= 12; k++ {
		t.Mul(t, x).Quo(t, one20).Quo(t, big.NewInt(k))
		seriesSum.Add(seriesSum, t)
	}

	res := product.Mul(product, seriesSum)
	res.Quo(res, one20)
	res.Mul(res, firstAN)
	return res.Quo(res, hundred), nil
}

// Ln returns the natural logarithm of a positive 18-decimal value.
func Ln(a *big.Int) (*big.Int, error) {
	if a.Sign() <= 0 {
		return nil, errs.ErrOutOfBounds
	}
	if inLn36Band(a) {
		v := ln36(a)
		return v.Quo(v, one18), nil
	}
	return ln(a), nil
}

// Log returns the logarithm of arg in the given base, both positive
// 18-decimal values.
func Log(arg, base *big.Int) (*big.Int, error) {
	if arg.Sign() <= 0 || base.Sign() <= 0 {
		return nil, errs.ErrOutOfBounds
	}
	logBase := ln36Scaled(base)
	if logBase.Sign() == 0 {
		return nil, errs.ErrZeroDivision
	}
	logArg := ln36Scaled(arg)
	logArg.Mul(logArg, one18)
	return logArg.Quo(logArg, logBase), nil
}

// ln36Scaled returns ln(a) with 36 decimals, using the high precision series
// when a is close to one.
func ln36Scaled(a *big.Int) *big.Int {
	if inLn36Band(a) {
		return ln36(a)
	}
	v := ln(a)
	return v.Mul(v, one18)
}

func inLn36Band(a *big.Int) bool {
	return a.Cmp(ln36LowerBound) > 0 && a.Cmp(ln36UpperBound) < 0
}

// ln is the 18-decimal natural logarithm for a > 0.
func ln(a *big.Int) *big.Int {
	if a.Cmp(one18) < 0 {
		// ln(a) = -ln(1/a) for a < 1.
		inv := new(big.Int).Mul(one18, one18)
		inv.Quo(inv, a)
		v := ln(inv)
		return v.Neg(v)
	}

	a = new(big.Int).Set(a)
	sum := new(big.Int)

	if a.Cmp(new(big.Int).Mul(a0, one18)) >= 0 {
		a.Quo(a, a0)
		sum.Add(sum, x0)
	}
	if a.Cmp(new(big.Int).Mul(a1, one18)) >= 0 {
		a.Quo(a, a1)
		sum.Add(sum, x1)
	}

	sum.Mul(sum, hundred)
	a.Mul(a, hundred)

	for _, t := range terms {
		if a.Cmp(t.a) >= 0 {
			a.Mul(a, one20).Quo(a, t.a)
			sum.Add(sum, t.x)
		}
	}

	// atanh series: ln(a) = 2 * (z + z^3/3 + z^5/5 + ...), z = (a-1)/(a+1).
	seriesSum := atanhSeries(a, one20, 11)
	sum.Add(sum, seriesSum)
	return sum.Quo(sum, hundred)
}

// ln36 returns ln(x) with 36 decimals for x close to one.
func ln36(x *big.Int) *big.Int {
	scaled := new(big.Int).Mul(x, one18)
	return atanhSeries(scaled, one36, 15)
}

// atanhSeries evaluates 2*atanh((a-one)/(a+one)) in the precision of one,
// summing odd terms up to the given power.
func atanhSeries(a, one *big.Int, maxPower int64) *big.Int {
	num := new(big.Int).Sub(a, one)
	num.Mul(num, one)
	z := num.Quo(num, new(big.Int).Add(a, one))

	zSquared := new(big.Int).Mul(z, z)
	zSquared.Quo(zSquared, one)

	n := new(big.Int).Set(z)
	seriesSum := new(big.Int).Set(z)
	for k := int64(3); k <= maxPower; k += 2 {
		n.Mul(n, zSquared).Quo(n, one)
		seriesSum.Add(seriesSum, new(big.Int).Quo(n, big.NewInt(k)))
	}
	return seriesSum.Mul(seriesSum, two)
}
