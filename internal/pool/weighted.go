package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	fp "balancerScope/internal/fixedpoint"
	"balancerScope/internal/model"
	"balancerScope/internal/scaling"
	"balancerScope/internal/weighted"
)

// WeightedPool is a constant weighted product pool.
type WeightedPool struct {
	base
	weights []*uint256.Int
}

func newWeighted(snap model.PoolSnapshot) (*WeightedPool, error) {
	b, err := newBase(snap, snap.Tokens, false)
	if err != nil {
		return nil, err
	}
	weights := make([]*uint256.Int, len(snap.Tokens))
	for i, t := range snap.Tokens {
		if weights[i], err = scaling.ParseFixed(t.Weight); err != nil {
			return nil, fmt.Errorf("token %s weight: %w", t.Address, err)
		}
	}
	if err := weighted.ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &WeightedPool{base: b, weights: weights}, nil
}

func (p *WeightedPool) Kind() model.PoolKind { return model.KindWeighted }

// Weights returns the normalized weights.
func (p *WeightedPool) Weights() []*uint256.Int { return fp.Clone(p.weights) }

func (p *WeightedPool) Clone() Pool {
	return &WeightedPool{base: p.base.clone(), weights: fp.Clone(p.weights)}
}

func (p *WeightedPool) Invariant() (*uint256.Int, error) {
	return weighted.Invariant(p.weights, p.balances)
}

func (p *WeightedPool) SwapGivenIn(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenIn(tokenIn, tokenOut, amount, func(i, o int, in *uint256.Int) (*uint256.Int, error) {
		return weighted.SwapGivenIn(p.balances[i], p.weights[i], p.balances[o], p.weights[o], in, p.swapFee)
	})
}

func (p *WeightedPool) SwapGivenOut(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenOut(tokenIn, tokenOut, amount, func(i, o int, out *uint256.Int) (*uint256.Int, error) {
		return weighted.SwapGivenOut(p.balances[i], p.weights[i], p.balances[o], p.weights[o], out, p.swapFee)
	})
}

func (p *WeightedPool) JoinExactTokensIn(amounts []string) (Quote, error) {
	return p.joinExactTokensIn(amounts, func(ins []*uint256.Int) (*uint256.Int, error) {
		return weighted.BptOutGivenExactTokensIn(p.balances, p.weights, ins, p.totalShares, p.swapFee)
	})
}

func (p *WeightedPool) JoinExactBptOut(token, bptOut string) (Quote, error) {
	return p.joinExactBptOut(token, bptOut, func(i int, bpt *uint256.Int) (*uint256.Int, error) {
		return weighted.TokenInGivenExactBptOut(p.balances[i], p.weights[i], bpt, p.totalShares, p.swapFee)
	})
}

func (p *WeightedPool) ExitExactBptIn(token, bptIn string) (Quote, error) {
	return p.exitExactBptIn(token, bptIn, func(i int, bpt *uint256.Int) (*uint256.Int, error) {
		return weighted.TokenOutGivenExactBptIn(p.balances[i], p.weights[i], bpt, p.totalShares, p.swapFee)
	})
}

func (p *WeightedPool) ExitExactBptInProportional(bptIn string) (Quote, error) {
	return p.exitExactBptInProportional(bptIn, func(bpt *uint256.Int) ([]*uint256.Int, error) {
		return weighted.TokensOutGivenExactBptIn(p.balances, bpt, p.totalShares)
	})
}

func (p *WeightedPool) ExitExactTokensOut(amounts []string) (Quote, error) {
	return p.exitExactTokensOut(amounts, func(outs []*uint256.Int) (*uint256.Int, error) {
		return weighted.BptInGivenExactTokensOut(p.balances, p.weights, outs, p.totalShares, p.swapFee)
	})
}

// feeTokenIndex is the token protocol fees are charged in: the heaviest one.
func (p *WeightedPool) feeTokenIndex() int {
	idx := 0
	for i := 1; i < len(p.weights); i++ {
		if p.weights[i].Gt(p.weights[idx]) {
			idx = i
		}
	}
	return idx
}
