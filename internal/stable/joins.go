package stable

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

// BptOutGivenExactTokensIn returns the BPT minted for a join with the given
// amounts. Each token's share of the pool acts as its weight when deciding
// which part of an amount is charged the swap fee.
func BptOutGivenExactTokensIn(amp *uint256.Int, balances, amountsIn []*uint256.Int, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(amountsIn) {
		return nil, errs.ErrInputLengthMismatch
	}
	currentInvariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	sumBalances, err := fp.Sum(balances)
	if err != nil {
		return nil, err
	}

	balanceRatiosWithFee := make([]*uint256.Int, len(balances))
	invariantRatioWithFees := new(uint256.Int)
	for i := range balances {
		currentWeight, err := fp.DivDown(balances[i], sumBalances)
		if err != nil {
			return nil, err
		}
		grown, err := fp.Add(balances[i], amountsIn[i])
		if err != nil {
			return nil, err
		}
		if balanceRatiosWithFee[i], err = fp.DivDown(grown, balances[i]); err != nil {
			return nil, err
		}
		weighted, err := fp.MulDown(balanceRatiosWithFee[i], currentWeight)
		if err != nil {
			return nil, err
		}
		if invariantRatioWithFees, err = fp.Add(invariantRatioWithFees, weighted); err != nil {
			return nil, err
		}
	}

	newBalances := make([]*uint256.Int, len(balances))
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
		if newBalances[i], err = fp.Add(balances[i], amountInWithoutFee); err != nil {
			return nil, err
		}
	}

	newInvariant, err := Invariant(amp, newBalances, false)
	if err != nil {
		return nil, err
	}
	invariantRatio, err := fp.DivDown(newInvariant, currentInvariant)
	if err != nil {
		return nil, err
	}
	if !invariantRatio.Gt(fp.One) {
		return new(uint256.Int), nil
	}
	return fp.MulDown(bptTotalSupply, new(uint256.Int).Sub(invariantRatio, fp.One))
}

// TokenInGivenExactBptOut returns the amount of a single token needed to
// mint bptAmountOut.
func TokenInGivenExactBptOut(amp *uint256.Int, balances []*uint256.Int, tokenIndex int, bptAmountOut, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if tokenIndex < 0 || tokenIndex >= len(balances) {
		return nil, errs.ErrTokenNotFound
	}
	currentInvariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	newSupply, err := fp.Add(bptTotalSupply, bptAmountOut)
	if err != nil {
		return nil, err
	}
	ratio, err := fp.DivUp(newSupply, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	newInvariant, err := fp.MulUp(ratio, currentInvariant)
	if err != nil {
		return nil, err
	}

	newBalance, err := TokenBalanceGivenInvariantAndAllOtherBalances(amp, balances, newInvariant, tokenIndex)
	if err != nil {
		return nil, err
	}
	amountInWithoutFee, err := fp.Sub(newBalance, balances[tokenIndex])
	if err != nil {
		return nil, err
	}

	currentWeight, err := tokenWeight(balances, tokenIndex)
	if err != nil {
		return nil, err
	}
	taxable, err := fp.MulUp(amountInWithoutFee, fp.Complement(currentWeight))
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

// BptInGivenExactTokensOut returns the BPT burned for an exit with the given
// amounts.
func BptInGivenExactTokensOut(amp *uint256.Int, balances, amountsOut []*uint256.Int, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(amountsOut) {
		return nil, errs.ErrInputLengthMismatch
	}
	currentInvariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	sumBalances, err := fp.Sum(balances)
	if err != nil {
		return nil, err
	}

	balanceRatiosWithoutFee := make([]*uint256.Int, len(balances))
	invariantRatioWithoutFees := new(uint256.Int)
	for i := range balances {
		currentWeight, err := fp.DivUp(balances[i], sumBalances)
		if err != nil {
			return nil, err
		}
		shrunk, err := fp.Sub(balances[i], amountsOut[i])
		if err != nil {
			return nil, err
		}
		if balanceRatiosWithoutFee[i], err = fp.DivUp(shrunk, balances[i]); err != nil {
			return nil, err
		}
		weighted, err := fp.MulUp(balanceRatiosWithoutFee[i], currentWeight)
		if err != nil {
			return nil, err
		}
		if invariantRatioWithoutFees, err = fp.Add(invariantRatioWithoutFees, weighted); err != nil {
			return nil, err
		}
	}

	newBalances := make([]*uint256.Int, len(balances))
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
		if newBalances[i], err = fp.Sub(balances[i], amountOutWithFee); err != nil {
			return nil, err
		}
	}

	newInvariant, err := Invariant(amp, newBalances, true)
	if err != nil {
		return nil, err
	}
	invariantRatio, err := fp.DivDown(newInvariant, currentInvariant)
	if err != nil {
		return nil, err
	}
	return fp.MulUp(bptTotalSupply, fp.Complement(invariantRatio))
}

// TokenOutGivenExactBptIn returns the amount of a single token paid out for
// burning bptAmountIn.
func TokenOutGivenExactBptIn(amp *uint256.Int, balances []*uint256.Int, tokenIndex int, bptAmountIn, bptTotalSupply, swapFee *uint256.Int) (*uint256.Int, error) {
	if tokenIndex < 0 || tokenIndex >= len(balances) {
		return nil, errs.ErrTokenNotFound
	}
	currentInvariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	newSupply, err := fp.Sub(bptTotalSupply, bptAmountIn)
	if err != nil {
		return nil, err
	}
	ratio, err := fp.DivUp(newSupply, bptTotalSupply)
	if err != nil {
		return nil, err
	}
	newInvariant, err := fp.MulUp(ratio, currentInvariant)
	if err != nil {
		return nil, err
	}

	newBalance, err := TokenBalanceGivenInvariantAndAllOtherBalances(amp, balances, newInvariant, tokenIndex)
	if err != nil {
		return nil, err
	}
	amountOutWithoutFee, err := fp.Sub(balances[tokenIndex], newBalance)
	if err != nil {
		return nil, err
	}

	currentWeight, err := tokenWeight(balances, tokenIndex)
	if err != nil {
		return nil, err
	}
	taxable, err := fp.MulUp(amountOutWithoutFee, fp.Complement(currentWeight))
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

// tokenWeight is the token's share of the balance sum.
func tokenWeight(balances []*uint256.Int, tokenIndex int) (*uint256.Int, error) {
	sum, err := fp.Sum(balances)
	if err != nil {
		return nil, err
	}
	return fp.DivDown(balances[tokenIndex], sum)
}
