package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
	"balancerScope/internal/scaling"
	"balancerScope/internal/stable"
	"balancerScope/internal/weighted"
)

// PriceImpact returns the price impact of a join that mints bptOut for
// amounts: 1 - bptOut / bptZeroImpact, where bptZeroImpact is what the join
// would mint at the current spot prices. A join at or above the ideal has
// zero impact.
func PriceImpact(p Pool, amounts []string, bptOut string) (*uint256.Int, error) {
	ins, err := p.state().upscaleAll(amounts)
	if err != nil {
		return nil, err
	}
	bpt, err := scaling.ParseFixed(bptOut)
	if err != nil {
		return nil, fmt.Errorf("bpt amount %q: %w", bptOut, err)
	}
	ideal, err := bptZeroPriceImpact(p, ins)
	if err != nil {
		return nil, err
	}
	if !bpt.Lt(ideal) {
		return new(uint256.Int), nil
	}
	ratio, err := fp.DivDown(bpt, ideal)
	if err != nil {
		return nil, err
	}
	return fp.Complement(ratio), nil
}

// BptPrice returns the BPT minted per unit of token at the current state,
// before fees and slippage.
func BptPrice(p Pool, token string) (*uint256.Int, error) {
	b := p.state()
	i, err := b.index(token)
	if err != nil {
		return nil, err
	}
	unit := make([]*uint256.Int, len(b.tokens))
	for j := range unit {
		unit[j] = new(uint256.Int)
	}
	unit[i] = fp.One.Clone()
	return bptZeroPriceImpact(p, unit)
}

func bptZeroPriceImpact(p Pool, amounts []*uint256.Int) (*uint256.Int, error) {
	switch p := p.(type) {
	case *WeightedPool:
		return weighted.BptZeroPriceImpact(p.balances, p.weights, amounts, p.totalShares)
	case *StablePool:
		return stable.BptZeroPriceImpact(p.amp, p.balances, amounts, p.totalShares)
	case *MetaStablePool:
		return stable.BptZeroPriceImpact(p.amp, p.balances, amounts, p.totalShares)
	case *PhantomStablePool:
		return stable.BptZeroPriceImpact(p.amp, p.balances, amounts, p.totalShares)
	case *LinearPool:
		return nil, fmt.Errorf("linear pool price impact: %w", errs.ErrUnsupportedOperation)
	default:
		return nil, errs.ErrUnsupportedPoolKind
	}
}

// SpotPrice returns the price of tokenOut in units of tokenIn, fee included.
// It is defined for weighted pools.
func SpotPrice(p Pool, tokenIn, tokenOut string) (*uint256.Int, error) {
	wp, ok := p.(*WeightedPool)
	if !ok {
		return nil, fmt.Errorf("%s pool spot price: %w", p.Kind(), errs.ErrUnsupportedOperation)
	}
	i, o, err := wp.pair(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return weighted.SpotPrice(wp.balances[i], wp.weights[i], wp.balances[o], wp.weights[o], wp.swapFee)
}

// ProtocolFee is the protocol's share of swap fees accrued since the
// invariant was lastInvariant, charged in a single token.
type ProtocolFee struct {
	Token  Token
	Amount string
}

// DueProtocolFee computes the protocol fee owed given the invariant at the
// last join or exit and the protocol fee percentage, both 18-decimal values.
func DueProtocolFee(p Pool, lastInvariant, protocolFeePct string) (ProtocolFee, error) {
	last, err := scaling.ParseFixed(lastInvariant)
	if err != nil {
		return ProtocolFee{}, fmt.Errorf("last invariant %q: %w", lastInvariant, err)
	}
	pct, err := scaling.ParseFixed(protocolFeePct)
	if err != nil {
		return ProtocolFee{}, fmt.Errorf("protocol fee %q: %w", protocolFeePct, err)
	}

	var (
		idx int
		fee *uint256.Int
	)
	switch p := p.(type) {
	case *WeightedPool:
		current, err := p.Invariant()
		if err != nil {
			return ProtocolFee{}, err
		}
		idx = p.feeTokenIndex()
		fee, err = weighted.DueTokenProtocolSwapFeeAmount(p.balances[idx], p.weights[idx], last, current, pct)
		if err != nil {
			return ProtocolFee{}, err
		}
	case *StablePool:
		idx = stable.HighestBalanceIndex(p.balances)
		if fee, err = stable.DueProtocolSwapFeeAmount(p.amp, p.balances, last, idx, pct); err != nil {
			return ProtocolFee{}, err
		}
	case *MetaStablePool:
		idx = stable.HighestBalanceIndex(p.balances)
		if fee, err = stable.DueProtocolSwapFeeAmount(p.amp, p.balances, last, idx, pct); err != nil {
			return ProtocolFee{}, err
		}
	case *PhantomStablePool:
		idx = stable.HighestBalanceIndex(p.balances)
		if fee, err = stable.DueProtocolSwapFeeAmount(p.amp, p.balances, last, idx, pct); err != nil {
			return ProtocolFee{}, err
		}
	case *LinearPool:
		return ProtocolFee{}, fmt.Errorf("linear pool protocol fee: %w", errs.ErrUnsupportedOperation)
	default:
		return ProtocolFee{}, errs.ErrUnsupportedPoolKind
	}

	b := p.state()
	amount, _, err := b.payout(idx, fee)
	if err != nil {
		return ProtocolFee{}, err
	}
	return ProtocolFee{Token: b.tokens[idx], Amount: amount}, nil
}
