package stable

import (
	"math/big"

	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
)

// DueProtocolSwapFeeAmount returns the amount of tokenIndex owed to the
// protocol for swap fees collected since the invariant was lastInvariant.
//
// The fee token's balance is solved for lastInvariant; the excess of the
// current balance over it is the accrued fee. A current balance at or below
// that level, which can only come from rounding, owes nothing.
func DueProtocolSwapFeeAmount(amp *uint256.Int, balances []*uint256.Int, lastInvariant *uint256.Int, tokenIndex int, protocolFeePct *uint256.Int) (*uint256.Int, error) {
	finalBalance, err := TokenBalanceGivenInvariantAndAllOtherBalances(amp, balances, lastInvariant, tokenIndex)
	if err != nil {
		return nil, err
	}
	if !balances[tokenIndex].Gt(finalBalance) {
		return new(uint256.Int), nil
	}
	accrued := new(uint256.Int).Sub(balances[tokenIndex], finalBalance)
	return fp.MulDown(accrued, protocolFeePct)
}

// HighestBalanceIndex returns the index of the largest balance, the token
// in which protocol fees are charged.
func HighestBalanceIndex(balances []*uint256.Int) int {
	idx := 0
	for i := 1; i < len(balances); i++ {
		if balances[i].Gt(balances[idx]) {
			idx = i
		}
	}
	return idx
}

// BptSpotPrice returns the marginal BPT minted per unit of tokenIndex added
// to the pool, derived from the partial derivatives of the invariant.
func BptSpotPrice(amp *uint256.Int, balances []*uint256.Int, bptSupply *uint256.Int, tokenIndex int) (*uint256.Int, error) {
	if tokenIndex < 0 || tokenIndex >= len(balances) {
		return nil, errs.ErrTokenNotFound
	}
	invariant, err := Invariant(amp, balances, true)
	if err != nil {
		return nil, err
	}
	if invariant.IsZero() {
		return nil, errs.ErrZeroInvariant
	}

	n := big.NewInt(int64(len(balances)))
	d := invariant.ToBig()

	s := new(big.Int)
	dP := new(big.Int).Quo(d, n)
	for i, b := range balances {
		if i == tokenIndex {
			continue
		}
		bb := b.ToBig()
		if bb.Sign() == 0 {
			return nil, errs.ErrZeroDivision
		}
		s.Add(s, bb)
		dP.Mul(dP, d).Quo(dP, new(big.Int).Mul(n, bb))
	}

	x := balances[tokenIndex].ToBig()
	precision := big.NewInt(AmpPrecision)
	alpha := new(big.Int).Mul(amp.ToBig(), n)
	beta := new(big.Int).Mul(alpha, s)
	gamma := new(big.Int).Sub(precision, alpha)

	// partial_x = 2 * alpha * x + beta + gamma * D
	partialX := new(big.Int).Mul(big.NewInt(2), alpha)
	partialX.Mul(partialX, x).Add(partialX, beta)
	partialX.Add(partialX, new(big.Int).Mul(gamma, d))

	// -partial_D = D_P * (n + 1) * AMP_PRECISION - gamma * x
	minusPartialD := new(big.Int).Mul(dP, new(big.Int).Add(n, big.NewInt(1)))
	minusPartialD.Mul(minusPartialD, precision)
	minusPartialD.Sub(minusPartialD, new(big.Int).Mul(gamma, x))
	if minusPartialD.Sign() <= 0 {
		return nil, errs.ErrOutOfBounds
	}

	ratio := new(big.Int).Mul(partialX, bptSupply.ToBig())
	ratio.Quo(ratio, minusPartialD)
	if ratio.Sign() < 0 {
		return nil, errs.ErrOutOfBounds
	}
	r, overflow := uint256.FromBig(ratio)
	if overflow {
		return nil, errs.ErrMulOverflow
	}
	return fp.DivUp(r, invariant)
}

// BptZeroPriceImpact returns the BPT a join with amounts would mint at the
// current spot prices, i.e. with no slippage.
func BptZeroPriceImpact(amp *uint256.Int, balances, amounts []*uint256.Int, bptSupply *uint256.Int) (*uint256.Int, error) {
	if len(balances) != len(amounts) {
		return nil, errs.ErrInputLengthMismatch
	}
	total := new(uint256.Int)
	for i := range balances {
		price, err := BptSpotPrice(amp, balances, bptSupply, i)
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
