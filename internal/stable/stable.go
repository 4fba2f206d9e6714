// Package stable implements the StableSwap invariant and the swap and
// join/exit math of stable pools.
//
// Amplification values are pre-multiplied by AmpPrecision. Balances and
// amounts are upscaled 18-decimal integers.
package stable

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

const (
	MinTokens = 2
	MaxTokens = 5

	// MinAmp and MaxAmp bound the unscaled amplification parameter.
	MinAmp = 1
	MaxAmp = 5000

	AmpPrecision = 1000

	// maxIterations caps both Newton-Raphson solvers.
	maxIterations = 255
)

var ampPrecision = uint256.NewInt(AmpPrecision)

// ValidateAmp checks a precision-scaled amplification parameter.
func ValidateAmp(amp *uint256.Int) error {
	if amp.Lt(uint256.NewInt(MinAmp * AmpPrecision)) {
		return errs.ErrMinAmp
	}
	if amp.Gt(uint256.NewInt(MaxAmp * AmpPrecision)) {
		return errs.ErrMaxAmp
	}
	return nil
}

// ValidateTokenCount checks the number of tokens a stable pool may hold.
func ValidateTokenCount(n int) error {
	if n < MinTokens {
		return errs.ErrMinTokens
	}
	if n > MaxTokens {
		return errs.ErrMaxStableTokens
	}
	return nil
}

// Invariant computes D for the StableSwap equation
//
//	A * n^n * S + D = A * D * n^n + D^(n+1) / (n^n * P)
//
// by Newton-Raphson iteration starting from the balance sum. Successive
// iterates within one unit terminate the search.
//
// A rounded-down invariant uses the D_P iteration and divides down
// throughout. A rounded-up invariant uses the P_D iteration, rounding each
// step so the result errs upward. The P_D iteration can oscillate on widely
// spread balances and then fails with StableInvariantDidNotConverge.
func Invariant(amp *uint256.Int, balances []*uint256.Int, roundUp bool) (*uint256.Int, error) {
	sum, err := fp.Sum(balances)
	if err != nil {
		return nil, err
	}
	if sum.IsZero() {
		return new(uint256.Int), nil
	}
	ampTimesTotal, err := fp.Mul(amp, uint256.NewInt(uint64(len(balances))))
	if err != nil {
		return nil, err
	}
	ampMinusPrecision, err := fp.Sub(ampTimesTotal, ampPrecision)
	if err != nil {
		return nil, err
	}
	if roundUp {
		return invariantPD(ampTimesTotal, ampMinusPrecision, balances, sum)
	}
	return invariantDP(ampTimesTotal, ampMinusPrecision, balances, sum)
}

// invariantDP iterates
//
//	D = (A*n*S/p + n*D_P) * D / ((A*n - p) * D / p + (n+1) * D_P)
//
// with D_P = D^(n+1) / (n^n * P), every division rounding down.
func invariantDP(ampTimesTotal, ampMinusPrecision *uint256.Int, balances []*uint256.Int, sum *uint256.Int) (*uint256.Int, error) {
	n := uint256.NewInt(uint64(len(balances)))
	nPlusOne := uint256.NewInt(uint64(len(balances) + 1))

	ampSum, err := fp.Mul(ampTimesTotal, sum)
	if err != nil {
		return nil, err
	}
	if ampSum, err = fp.DivDownInt(ampSum, ampPrecision); err != nil {
		return nil, err
	}

	invariant := sum
	for i := 0; i < maxIterations; i++ {
		dP := invariant.Clone()
		for _, b := range balances {
			num, err := fp.Mul(dP, invariant)
			if err != nil {
				return nil, err
			}
			den, err := fp.Mul(b, n)
			if err != nil {
				return nil, err
			}
			if dP, err = fp.DivDownInt(num, den); err != nil {
				return nil, err
			}
		}

		numTerm, err := fp.Mul(dP, n)
		if err != nil {
			return nil, err
		}
		if numTerm, err = fp.Add(ampSum, numTerm); err != nil {
			return nil, err
		}
		numerator, err := fp.Mul(numTerm, invariant)
		if err != nil {
			return nil, err
		}

		denTerm, err := fp.Mul(ampMinusPrecision, invariant)
		if err != nil {
			return nil, err
		}
		if denTerm, err = fp.DivDownInt(denTerm, ampPrecision); err != nil {
			return nil, err
		}
		dPTerm, err := fp.Mul(nPlusOne, dP)
		if err != nil {
			return nil, err
		}
		denominator, err := fp.Add(denTerm, dPTerm)
		if err != nil {
			return nil, err
		}

		prev := invariant
		if invariant, err = fp.DivDownInt(numerator, denominator); err != nil {
			return nil, err
		}
		if withinOne(invariant, prev) {
			return invariant, nil
		}
	}
	return nil, errs.ErrStableInvariantDidNotConverge
}

// invariantPD iterates
//
//	D = (n*D*D + A*n*S*P_D/p) / ((n+1)*D + (A*n - p)*P_D/p)
//
// with P_D = n^n * P / D^(n-1). The numerator terms round up and the
// subtracted denominator term rounds down.
func invariantPD(ampTimesTotal, ampMinusPrecision *uint256.Int, balances []*uint256.Int, sum *uint256.Int) (*uint256.Int, error) {
	n := uint256.NewInt(uint64(len(balances)))
	nPlusOne := uint256.NewInt(uint64(len(balances) + 1))

	ampSum, err := fp.Mul(ampTimesTotal, sum)
	if err != nil {
		return nil, err
	}

	invariant := sum
	for i := 0; i < maxIterations; i++ {
		pD, err := fp.Mul(balances[0], n)
		if err != nil {
			return nil, err
		}
		for _, b := range balances[1:] {
			num, err := fp.Mul(pD, b)
			if err != nil {
				return nil, err
			}
			if num, err = fp.Mul(num, n); err != nil {
				return nil, err
			}
			if pD, err = fp.DivUpInt(num, invariant); err != nil {
				return nil, err
			}
		}

		sq, err := fp.Mul(n, invariant)
		if err != nil {
			return nil, err
		}
		if sq, err = fp.Mul(sq, invariant); err != nil {
			return nil, err
		}
		ampTerm, err := fp.Mul(ampSum, pD)
		if err != nil {
			return nil, err
		}
		if ampTerm, err = fp.DivUpInt(ampTerm, ampPrecision); err != nil {
			return nil, err
		}
		numerator, err := fp.Add(sq, ampTerm)
		if err != nil {
			return nil, err
		}

		lin, err := fp.Mul(nPlusOne, invariant)
		if err != nil {
			return nil, err
		}
		pDTerm, err := fp.Mul(ampMinusPrecision, pD)
		if err != nil {
			return nil, err
		}
		if pDTerm, err = fp.DivDownInt(pDTerm, ampPrecision); err != nil {
			return nil, err
		}
		denominator, err := fp.Add(lin, pDTerm)
		if err != nil {
			return nil, err
		}

		prev := invariant
		if invariant, err = fp.DivUpInt(numerator, denominator); err != nil {
			return nil, err
		}
		if withinOne(invariant, prev) {
			return invariant, nil
		}
	}
	return nil, errs.ErrStableInvariantDidNotConverge
}

// TokenBalanceGivenInvariantAndAllOtherBalances solves the StableSwap
// equation for the balance of tokenIndex, holding the invariant and every
// other balance fixed. The result rounds up.
func TokenBalanceGivenInvariantAndAllOtherBalances(amp *uint256.Int, balances []*uint256.Int, invariant *uint256.Int, tokenIndex int) (*uint256.Int, error) {
	if tokenIndex < 0 || tokenIndex >= len(balances) {
		return nil, errs.ErrTokenNotFound
	}
	n := uint256.NewInt(uint64(len(balances)))
	ampTimesTotal, err := fp.Mul(amp, n)
	if err != nil {
		return nil, err
	}

	sum := balances[0].Clone()
	pD, err := fp.Mul(balances[0], n)
	if err != nil {
		return nil, err
	}
	for j := 1; j < len(balances); j++ {
		if pD, err = fp.Mul(pD, balances[j]); err != nil {
			return nil, err
		}
		if pD, err = fp.Mul(pD, n); err != nil {
			return nil, err
		}
		if pD, err = fp.DivDownInt(pD, invariant); err != nil {
			return nil, err
		}
		if sum, err = fp.Add(sum, balances[j]); err != nil {
			return nil, err
		}
	}
	if sum, err = fp.Sub(sum, balances[tokenIndex]); err != nil {
		return nil, err
	}

	inv2, err := fp.Mul(invariant, invariant)
	if err != nil {
		return nil, err
	}
	// c = inv^2 / (A * n * P_D) * AMP_PRECISION * balance_i
	ampPD, err := fp.Mul(ampTimesTotal, pD)
	if err != nil {
		return nil, err
	}
	c, err := fp.DivUpInt(inv2, ampPD)
	if err != nil {
		return nil, err
	}
	if c, err = fp.Mul(c, ampPrecision); err != nil {
		return nil, err
	}
	if c, err = fp.Mul(c, balances[tokenIndex]); err != nil {
		return nil, err
	}

	// b = S + inv / (A * n) * AMP_PRECISION
	b, err := fp.DivDownInt(invariant, ampTimesTotal)
	if err != nil {
		return nil, err
	}
	if b, err = fp.Mul(b, ampPrecision); err != nil {
		return nil, err
	}
	if b, err = fp.Add(sum, b); err != nil {
		return nil, err
	}

	// Initial approximation: y = (inv^2 + c) / (inv + b)
	num, err := fp.Add(inv2, c)
	if err != nil {
		return nil, err
	}
	den, err := fp.Add(invariant, b)
	if err != nil {
		return nil, err
	}
	tokenBalance, err := fp.DivUpInt(num, den)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxIterations; i++ {
		prev := tokenBalance

		// y = (y^2 + c) / (2y + b - inv)
		sq, err := fp.Mul(tokenBalance, tokenBalance)
		if err != nil {
			return nil, err
		}
		if num, err = fp.Add(sq, c); err != nil {
			return nil, err
		}
		twice, err := fp.Mul(tokenBalance, uint256.NewInt(2))
		if err != nil {
			return nil, err
		}
		if den, err = fp.Add(twice, b); err != nil {
			return nil, err
		}
		if den, err = fp.Sub(den, invariant); err != nil {
			return nil, err
		}
		if tokenBalance, err = fp.DivUpInt(num, den); err != nil {
			return nil, err
		}
		if withinOne(tokenBalance, prev) {
			return tokenBalance, nil
		}
	}
	return nil, errs.ErrStableGetBalanceDidNotConverge
}

// CalcOutGivenIn returns the amount of tokenOut received for a fee-free
// amountIn, given the current invariant. One wei is kept by the pool.
func CalcOutGivenIn(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountIn, invariant *uint256.Int) (*uint256.Int, error) {
	if err := checkPair(balances, indexIn, indexOut); err != nil {
		return nil, err
	}
	updated := fp.Clone(balances)
	var err error
	if updated[indexIn], err = fp.Add(updated[indexIn], amountIn); err != nil {
		return nil, err
	}
	finalOut, err := TokenBalanceGivenInvariantAndAllOtherBalances(amp, updated, invariant, indexOut)
	if err != nil {
		return nil, err
	}
	out, err := fp.Sub(balances[indexOut], finalOut)
	if err != nil {
		return nil, err
	}
	return fp.Sub(out, uint256.NewInt(1))
}

// CalcInGivenOut returns the fee-free amount of tokenIn needed to receive
// amountOut, given the current invariant. One extra wei is charged.
func CalcInGivenOut(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountOut, invariant *uint256.Int) (*uint256.Int, error) {
	if err := checkPair(balances, indexIn, indexOut); err != nil {
		return nil, err
	}
	updated := fp.Clone(balances)
	var err error
	if updated[indexOut], err = fp.Sub(updated[indexOut], amountOut); err != nil {
		return nil, err
	}
	finalIn, err := TokenBalanceGivenInvariantAndAllOtherBalances(amp, updated, invariant, indexIn)
	if err != nil {
		return nil, err
	}
	in, err := fp.Sub(finalIn, balances[indexIn])
	if err != nil {
		return nil, err
	}
	return fp.Add(in, uint256.NewInt(1))
}

// SwapGivenIn deducts the swap fee from amountIn and returns the amount out.
func SwapGivenIn(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	invariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	fee, err := fp.MulUp(amountIn, swapFee)
	if err != nil {
		return nil, err
	}
	net, err := fp.Sub(amountIn, fee)
	if err != nil {
		return nil, err
	}
	return CalcOutGivenIn(amp, balances, indexIn, indexOut, net, invariant)
}

// SwapGivenOut returns the amount in, grossed up by the swap fee, needed to
// receive amountOut.
func SwapGivenOut(amp *uint256.Int, balances []*uint256.Int, indexIn, indexOut int, amountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	invariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	in, err := CalcInGivenOut(amp, balances, indexIn, indexOut, amountOut, invariant)
	if err != nil {
		return nil, err
	}
	return fp.DivUp(in, fp.Complement(swapFee))
}

func checkPair(balances []*uint256.Int, indexIn, indexOut int) error {
	if indexIn < 0 || indexIn >= len(balances) || indexOut < 0 || indexOut >= len(balances) || indexIn == indexOut {
		return errs.ErrTokenNotFound
	}
	return nil
}

func withinOne(a, b *uint256.Int) bool {
	diff := new(uint256.Int)
	if a.Gt(b) {
		diff.Sub(a, b)
	} else {
		diff.Sub(b, a)
	}
	return diff.LtUint64(2)
}
