// Package weighted implements the invariant, swap and join/exit math of
// weighted pools.
//
// All values are upscaled 18-decimal fixed-point integers. Every rounding
// choice favours the pool: amounts paid out and BPT minted round down,
// amounts paid in and BPT burned round up.
package weighted

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

const (
	MinTokens = 2
	MaxTokens = 8
)

var (
	// MinWeight is the smallest normalized weight a token may carry (1%).
	MinWeight = uint256.NewInt(0.01e18)

	// Swap limits, as a fraction of the pool balance.
	MaxInRatio  = uint256.NewInt(0.3e18)
	MaxOutRatio = uint256.NewInt(0.3e18)

	// Single-token join/exit limits on invariant growth and shrink.
	MaxInvariantRatio = uint256.NewInt(3e18)
	MinInvariantRatio = uint256.NewInt(0.7e18)
)

// ValidateWeights checks token count, per-token minimum and that the weights
// sum to exactly ONE.
func ValidateWeights(weights []*uint256.Int) error {
	if len(weights) < MinTokens {
		return errs.ErrMinTokens
	}
	if len(weights) > MaxTokens {
		return errs.ErrMaxTokens
	}
	sum := new(uint256.Int)
	for _, w := range weights {
		if w.Lt(MinWeight) {
			return errs.ErrMinWeight
		}
		var err error
		if sum, err = fp.Add(sum, w); err != nil {
			return err
		}
	}
	if !sum.Eq(fp.One) {
		return errs.ErrNormalizedWeightInvariant
	}
	return nil
}

// Invariant computes prod(balance_i ^ weight_i), rounding down.
func Invariant(weights, balances []*uint256.Int) (*uint256.Int, error) {
	if len(weights) != len(balances) {
		return nil, errs.ErrInputLengthMismatch
	}
	invariant := fp.One.Clone()
	for i := range weights {
		pow, err := fp.PowDown(balances[i], weights[i])
		if err != nil {
			return nil, err
		}
		if invariant, err = fp.MulDown(invariant, pow); err != nil {
			return nil, err
		}
	}
	if invariant.IsZero() {
		return nil, errs.ErrZeroInvariant
	}
	return invariant, nil
}

// CalcOutGivenIn returns the amount of tokenOut received for an exact,
// fee-free amount of tokenIn.
//
//	aO = bO * (1 - (bI / (bI + aI)) ^ (wI / wO))
func CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn *uint256.Int) (*uint256.Int, error) {
	limit, err := fp.MulDown(balanceIn, MaxInRatio)
	if err != nil {
		return nil, err
	}
	if amountIn.Gt(limit) {
		return nil, errs.ErrMaxInRatio
	}

	denominator, err := fp.Add(balanceIn, amountIn)
	if err != nil {
		return nil, err
	}
	// The base rounds up so the complement, and with it the payout, rounds down.
	base, err := fp.DivUp(balanceIn, denominator)
	if err != nil {
		return nil, err
	}
	exponent, err := fp.DivDown(weightIn, weightOut)
	if err != nil {
		return nil, err
	}
	power, err := fp.PowUp(base, exponent)
	if err != nil {
		return nil, err
	}
	return fp.MulDown(balanceOut, fp.Complement(power))
}

// CalcInGivenOut returns the fee-free amount of tokenIn needed to receive an
// exact amount of tokenOut.
//
//	aI = bI * ((bO / (bO - aO)) ^ (wO / wI) - 1)
func CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut *uint256.Int) (*uint256.Int, error) {
	limit, err := fp.MulDown(balanceOut, MaxOutRatio)
	if err != nil {
		return nil, err
	}
	if amountOut.Gt(limit) {
		return nil, errs.ErrMaxOutRatio
	}

	remaining, err := fp.Sub(balanceOut, amountOut)
	if err != nil {
		return nil, err
	}
	base, err := fp.DivUp(balanceOut, remaining)
	if err != nil {
		return nil, err
	}
	exponent, err := fp.DivUp(weightOut, weightIn)
	if err != nil {
		return nil, err
	}
	power, err := fp.PowUp(base, exponent)
	if err != nil {
		return nil, err
	}
	ratio, err := fp.Sub(power, fp.One)
	if err != nil {
		return nil, err
	}
	return fp.MulUp(balanceIn, ratio)
}

// SwapGivenIn deducts the swap fee from amountIn and returns the amount out.
func SwapGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	net, err := SubtractSwapFee(amountIn, swapFee)
	if err != nil {
		return nil, err
	}
	return CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, net)
}

// SwapGivenOut returns the amount in, grossed up by the swap fee, needed to
// receive amountOut.
func SwapGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	in, err := CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut)
	if err != nil {
		return nil, err
	}
	return AddSwapFee(in, swapFee)
}

// SubtractSwapFee returns amount minus its swap fee, the fee rounded up.
func SubtractSwapFee(amount, swapFee *uint256.Int) (*uint256.Int, error) {
	fee, err := fp.MulUp(amount, swapFee)
	if err != nil {
		return nil, err
	}
	return fp.Sub(amount, fee)
}

// AddSwapFee grosses amount up so that, after the fee, amount remains.
func AddSwapFee(amount, swapFee *uint256.Int) (*uint256.Int, error) {
	return fp.DivUp(amount, fp.Complement(swapFee))
}

// BptOutGivenExactTokensIn returns the BPT minted for a join with the given
// amounts. Amounts in excess of a proportional join pay the swap fee.
func BptOutGivenExactTokensIn(balances, weights, amountsIn []*uint256.Int, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(weights) || len(balances) != len(amountsIn) {
		return nil, errs.ErrInputLengthMismatch
	}

	balanceRatiosWithFee := make([]*uint256.Int, len(amountsIn))
	invariantRatioWithFees := new(uint256.Int)
	for i := range balances {
		grown, err := fp.Add(balances[i], amountsIn[i])
		if err != nil {
			return nil, err
		}
		if balanceRatiosWithFee[i], err = fp.DivDown(grown, balances[i]); err != nil {
			return nil, err
		}
		weighted, err := fp.MulDown(balanceRatiosWithFee[i], weights[i])
		if err != nil {
			return nil, err
		}
		if invariantRatioWithFees, err = fp.Add(invariantRatioWithFees, weighted); err != nil {
			return nil, err
		}
	}

	invariantRatio := fp.One.Clone()
	for i := range balances {
		amountInWithoutFee := amountsIn[i]
		if balanceRatiosWithFee[i].Gt(invariantRatioWithFees) {
			excess, err := fp.Sub(invariantRatioWithFees, fp.One)
			if err != nil {
				return nil, err
			}
			nonTaxable, err := fp.MulDown(balances[i], excess)
			if err != nil {
				return nil, err
			}
			taxable, err := fp.Sub(amountsIn[i], nonTaxable)
			if err != nil {
				return nil, err
			}
			taxed, err := fp.MulDown(taxable, fp.Complement(swapFee))
			if err != nil {
				return nil, err
			}
			if amountInWithoutFee, err = fp.Add(nonTaxable, taxed); err != nil {
				return nil, err
			}
		}

		grown, err := fp.Add(balances[i], amountInWithoutFee)
		if err != nil {
			return nil, err
		}
		balanceRatio, err := fp.DivDown(grown, balances[i])
		if err != nil {
			return nil, err
		}
		pow, err := fp.PowDown(balanceRatio, weights[i])
		if err != nil {
			return nil, err
		}
		if invariantRatio, err = fp.MulDown(invariantRatio, pow); err != nil {
			return nil, err
		}
	}

	if !invariantRatio.Gt(fp.One) {
		return new(uint256.Int), nil
	}
	return fp.MulDown(bptTotalSupply, new(uint256.Int).Sub(invariantRatio, fp.One))
}

// TokenInGivenExactBptOut returns the amount of a single token needed to
// mint bptAmountOut. Invariant growth above MaxInvariantRatio is rejected.
func TokenInGivenExactBptOut(balance, weight, bptAmountOut, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	newSupply, err := fp.Add(bptTotalSupply, bptAmountOut)
	if err != nil {
		return nil, err
	}
	invariantRatio, err := fp.DivUp(newSupply, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	if invariantRatio.Gt(MaxInvariantRatio) {
		return nil, errs.ErrMaxOutBptForTokenIn
	}

	exponent, err := fp.DivUp(fp.One, weight)
	if err != nil {
		return nil, err
	}
	balanceRatio, err := fp.PowUp(invariantRatio, exponent)
	if err != nil {
		return nil, err
	}
	growth, err := fp.Sub(balanceRatio, fp.One)
	if err != nil {
		return nil, err
	}
	amountInWithoutFee, err := fp.MulUp(balance, growth)
	if err != nil {
		return nil, err
	}

	// Only the share of the amount not matched by the token's weight is
	// treated as a swap.
	taxable, err := fp.MulUp(amountInWithoutFee, fp.Complement(weight))
	if err != nil {
		return nil, err
	}
	nonTaxable, err := fp.Sub(amountInWithoutFee, taxable)
	if err != nil {
		return nil, err
	}
	taxed, err := fp.DivUp(taxable, fp.Complement(swapFee))
	if err != nil {
		return nil, err
	}
	return fp.Add(nonTaxable, taxed)
}

// AllTokensInGivenExactBptOut returns the proportional amounts needed to mint
// bptAmountOut, rounding up.
func AllTokensInGivenExactBptOut(balances []*uint256.Int, bptAmountOut, bptTotalSupply *uint256.Int) ([]*uint256.Int, error) {
	ratio, err := fp.DivUp(bptAmountOut, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	out := make([]*uint256.Int, len(balances))
	for i, b := range balances {
		if out[i], err = fp.MulUp(b, ratio); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BptInGivenExactTokensOut returns the BPT burned for an exit with the given
// amounts. Amounts in excess of a proportional exit pay the swap fee.
func BptInGivenExactTokensOut(balances, weights, amountsOut []*uint256.Int, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(weights) || len(balances) != len(amountsOut) {
		return nil, errs.ErrInputLengthMismatch
	}

	balanceRatiosWithoutFee := make([]*uint256.Int, len(amountsOut))
	invariantRatioWithoutFees := new(uint256.Int)
	for i := range balances {
		shrunk, err := fp.Sub(balances[i], amountsOut[i])
		if err != nil {
			return nil, err
		}
		if balanceRatiosWithoutFee[i], err = fp.DivUp(shrunk, balances[i]); err != nil {
			return nil, err
		}
		weighted, err := fp.MulUp(balanceRatiosWithoutFee[i], weights[i])
		if err != nil {
			return nil, err
		}
		if invariantRatioWithoutFees, err = fp.Add(invariantRatioWithoutFees, weighted); err != nil {
			return nil, err
		}
	}

	invariantRatio := fp.One.Clone()
	for i := range balances {
		amountOutWithFee := amountsOut[i]
		if invariantRatioWithoutFees.Gt(balanceRatiosWithoutFee[i]) {
			nonTaxable, err := fp.MulDown(balances[i], fp.Complement(invariantRatioWithoutFees))
			if err != nil {
				return nil, err
			}
			taxable, err := fp.Sub(amountsOut[i], nonTaxable)
			if err != nil {
				return nil, err
			}
			taxed, err := fp.DivUp(taxable, fp.Complement(swapFee))
			if err != nil {
				return nil, err
			}
			if amountOutWithFee, err = fp.Add(nonTaxable, taxed); err != nil {
				return nil, err
			}
		}

		shrunk, err := fp.Sub(balances[i], amountOutWithFee)
		if err != nil {
			return nil, err
		}
		balanceRatio, err := fp.DivDown(shrunk, balances[i])
		if err != nil {
			return nil, err
		}
		pow, err := fp.PowDown(balanceRatio, weights[i])
		if err != nil {
			return nil, err
		}
		if invariantRatio, err = fp.MulDown(invariantRatio, pow); err != nil {
			return nil, err
		}
	}

	return fp.MulUp(bptTotalSupply, fp.Complement(invariantRatio))
}

// TokenOutGivenExactBptIn returns the amount of a single token paid out for
// burning bptAmountIn. Invariant shrink below MinInvariantRatio is rejected.
func TokenOutGivenExactBptIn(balance, weight, bptAmountIn, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	newSupply, err := fp.Sub(bptTotalSupply, bptAmountIn)
	if err != nil {
		return nil, err
	}
	invariantRatio, err := fp.DivUp(newSupply, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	if invariantRatio.Lt(MinInvariantRatio) {
		return nil, errs.ErrMinBptInForTokenOut
	}

	exponent, err := fp.DivDown(fp.One, weight)
	if err != nil {
		return nil, err
	}
	balanceRatio, err := fp.PowUp(invariantRatio, exponent)
	if err != nil {
		return nil, err
	}
	amountOutWithoutFee, err := fp.MulDown(balance, fp.Complement(balanceRatio))
	if err != nil {
		return nil, err
	}

	taxable, err := fp.MulUp(amountOutWithoutFee, fp.Complement(weight))
	if err != nil {
		return nil, err
	}
	nonTaxable, err := fp.Sub(amountOutWithoutFee, taxable)
	if err != nil {
		return nil, err
	}
	taxed, err := fp.MulDown(taxable, fp.Complement(swapFee))
	if err != nil {
		return nil, err
	}
	return fp.Add(nonTaxable, taxed)
}

// TokensOutGivenExactBptIn returns the proportional amounts paid out for
// burning bptAmountIn, rounding down.
func TokensOutGivenExactBptIn(balances []*uint256.Int, bptAmountIn, bptTotalSupply *uint256.Int) ([]*uint256.Int, error) {
	ratio, err := fp.DivDown(bptAmountIn, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	out := make([]*uint256.Int, len(balances))
	for i, b := range balances {
		if out[i], err = fp.MulDown(b, ratio); err != nil {
			return nil, err
		}
	}
	return out, nil
}
