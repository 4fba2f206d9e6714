package weighted

import (
	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

// DueTokenProtocolSwapFeeAmount returns the amount of one token owed to the
// protocol for the invariant growth between two joins or exits.
//
// The fee is charged entirely in the given token: its balance is reduced
// until the invariant falls back to lastInvariant, and the protocol takes
// protocolFeePct of that difference.
func DueTokenProtocolSwapFeeAmount(balance, weight, lastInvariant, currentInvariant, protocolFeePct *uint256.Int) (*uint256.Int, error) {
	if !currentInvariant.Gt(lastInvariant) {
		return new(uint256.Int), nil
	}

	base, err := fp.DivUp(lastInvariant, currentInvariant)
	if err != nil {
		return nil, err
	}
	exponent, err := fp.DivDown(fp.One, weight)
	if err != nil {
		return nil, err
	}
	// Bases below the cap would push the power outside the engine's precision.
	base = fp.Max(base, fp.MinPowBaseFreeExponent)

	power, err := fp.PowUp(base, exponent)
	if err != nil {
		return nil, err
	}
	accrued, err := fp.MulDown(balance, fp.Complement(power))
	if err != nil {
		return nil, err
	}
	return fp.MulDown(accrued, protocolFeePct)
}

// SpotPrice returns the price of tokenOut in units of tokenIn, including the
// swap fee.
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee *uint256.Int) (*uint256.Int, error) {
	numerator, err := fp.DivUp(balanceIn, weightIn)
	if err != nil {
		return nil, err
	}
	denominator, err := fp.DivDown(balanceOut, weightOut)
	if err != nil {
		return nil, err
	}
	ratio, err := fp.DivUp(numerator, denominator)
	if err != nil {
		return nil, err
	}
	return fp.DivUp(ratio, fp.Complement(swapFee))
}

// BptZeroPriceImpact returns the BPT a join with amounts would mint at the
// current spot price, i.e. with no slippage.
func BptZeroPriceImpact(balances, weights, amounts []*uint256.Int, bptTotalSupply *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(weights) || len(balances) != len(amounts) {
		return nil, errs.ErrInputLengthMismatch
	}
	total := new(uint256.Int)
	for i := range balances {
		// price = weight * supply / balance, an 18-decimal BPT per token rate.
		priceNum, err := fp.Mul(weights[i], bptTotalSupply)
		if err != nil {
			return nil, err
		}
		price, err := fp.DivDownInt(priceNum, balances[i])
		if err != nil {
			return nil, err
		}
		bpt, err := fp.MulDown(price, amounts[i])
		if err != nil {
			return nil, err
		}
		if total, err = fp.Add(total, bpt); err != nil {
			return nil, err
		}
	}
	return total, nil
}
