package pool

import (
	"fmt"

	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
	"balancerScope/internal/linear"
	"balancerScope/internal/model"
	"balancerScope/internal/scaling"
)

// LinearPool trades a main token, its wrapped version and the pool's BPT.
// The wrapped token's price rate is folded into its scaling factor.
type LinearPool struct {
	base
	mainIndex    int
	wrappedIndex int
	params       linear.Params
}

func newLinear(snap model.PoolSnapshot) (*LinearPool, error) {
	if len(snap.Tokens) != 3 {
		return nil, fmt.Errorf("linear pool needs 3 tokens, got %d: %w", len(snap.Tokens), errs.ErrInputLengthMismatch)
	}
	if snap.MainIndex == nil || snap.WrappedIndex == nil {
		return nil, fmt.Errorf("main and wrapped index: %w", errs.ErrTokenNotFound)
	}
	mainIndex, wrappedIndex := *snap.MainIndex, *snap.WrappedIndex
	if mainIndex < 0 || mainIndex > 2 || wrappedIndex < 0 || wrappedIndex > 2 || mainIndex == wrappedIndex {
		return nil, fmt.Errorf("main index %d, wrapped index %d: %w", mainIndex, wrappedIndex, errs.ErrTokenNotFound)
	}
	bptIndex := 3 - mainIndex - wrappedIndex
	if snap.Tokens[bptIndex].Address != "" && !equalAddress(snap.Tokens[bptIndex].Address, snap.Address) {
		return nil, fmt.Errorf("bpt token %s at index %d: %w", snap.Address, bptIndex, errs.ErrTokenNotFound)
	}

	// Only the wrapped token carries a rate; the pre-minted BPT balance is
	// replaced by the virtual supply in TotalShares.
	tokens := make([]model.TokenSnapshot, len(snap.Tokens))
	copy(tokens, snap.Tokens)
	tokens[mainIndex].PriceRate = ""
	tokens[bptIndex].PriceRate = ""
	tokens[bptIndex].Decimals = scaling.MaxDecimals
	tokens[bptIndex].Balance = "0"

	b, err := newBase(snap, tokens, true)
	if err != nil {
		return nil, err
	}
	b.bptIndex = bptIndex

	params := linear.Params{Fee: b.swapFee.Clone()}
	if params.LowerTarget, err = b.upscale(mainIndex, snap.LowerTarget); err != nil {
		return nil, fmt.Errorf("lower target: %w", err)
	}
	if params.UpperTarget, err = b.upscale(mainIndex, snap.UpperTarget); err != nil {
		return nil, fmt.Errorf("upper target: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	return &LinearPool{base: b, mainIndex: mainIndex, wrappedIndex: wrappedIndex, params: params}, nil
}

func (p *LinearPool) Kind() model.PoolKind { return model.KindLinear }

func (p *LinearPool) Clone() Pool {
	return &LinearPool{
		base:         p.base.clone(),
		mainIndex:    p.mainIndex,
		wrappedIndex: p.wrappedIndex,
		params: linear.Params{
			Fee:         p.params.Fee.Clone(),
			LowerTarget: p.params.LowerTarget.Clone(),
			UpperTarget: p.params.UpperTarget.Clone(),
		},
	}
}

// Invariant is the pool value in nominal main token units.
func (p *LinearPool) Invariant() (*uint256.Int, error) {
	nominal, err := linear.ToNominal(p.balances[p.mainIndex], p.params)
	if err != nil {
		return nil, err
	}
	return fp.Add(nominal, p.balances[p.wrappedIndex])
}

func (p *LinearPool) SwapGivenIn(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenIn(tokenIn, tokenOut, amount, func(i, o int, in *uint256.Int) (*uint256.Int, error) {
		main, wrapped, supply := p.balances[p.mainIndex], p.balances[p.wrappedIndex], p.totalShares
		switch {
		case i == p.mainIndex && o == p.bptIndex:
			return linear.BptOutPerMainIn(in, main, wrapped, supply, p.params)
		case i == p.mainIndex && o == p.wrappedIndex:
			return linear.WrappedOutPerMainIn(in, main, p.params)
		case i == p.wrappedIndex && o == p.mainIndex:
			return linear.MainOutPerWrappedIn(in, main, p.params)
		case i == p.wrappedIndex && o == p.bptIndex:
			return linear.BptOutPerWrappedIn(in, main, wrapped, supply, p.params)
		case i == p.bptIndex && o == p.mainIndex:
			return linear.MainOutPerBptIn(in, main, wrapped, supply, p.params)
		case i == p.bptIndex && o == p.wrappedIndex:
			return linear.WrappedOutPerBptIn(in, main, wrapped, supply, p.params)
		}
		return nil, errs.ErrTokenNotFound
	})
}

func (p *LinearPool) SwapGivenOut(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenOut(tokenIn, tokenOut, amount, func(i, o int, out *uint256.Int) (*uint256.Int, error) {
		main, wrapped, supply := p.balances[p.mainIndex], p.balances[p.wrappedIndex], p.totalShares
		switch {
		case i == p.mainIndex && o == p.bptIndex:
			return linear.MainInPerBptOut(out, main, wrapped, supply, p.params)
		case i == p.mainIndex && o == p.wrappedIndex:
			return linear.MainInPerWrappedOut(out, main, p.params)
		case i == p.wrappedIndex && o == p.mainIndex:
			return linear.WrappedInPerMainOut(out, main, p.params)
		case i == p.wrappedIndex && o == p.bptIndex:
			return linear.WrappedInPerBptOut(out, main, wrapped, supply, p.params)
		case i == p.bptIndex && o == p.mainIndex:
			return linear.BptInPerMainOut(out, main, wrapped, supply, p.params)
		case i == p.bptIndex && o == p.wrappedIndex:
			return linear.BptInPerWrappedOut(out, main, wrapped, supply, p.params)
		}
		return nil, errs.ErrTokenNotFound
	})
}

// Linear pools only move liquidity through swaps.

func (p *LinearPool) JoinExactTokensIn([]string) (Quote, error) {
	return Quote{}, p.unsupported(OpJoinExactTokensIn)
}

func (p *LinearPool) JoinExactBptOut(string, string) (Quote, error) {
	return Quote{}, p.unsupported(OpJoinExactBptOut)
}

func (p *LinearPool) ExitExactBptIn(string, string) (Quote, error) {
	return Quote{}, p.unsupported(OpExitExactBptIn)
}

func (p *LinearPool) ExitExactBptInProportional(string) (Quote, error) {
	return Quote{}, p.unsupported(OpExitExactBptInProportional)
}

func (p *LinearPool) ExitExactTokensOut([]string) (Quote, error) {
	return Quote{}, p.unsupported(OpExitExactTokensOut)
}

func (p *LinearPool) unsupported(op Operation) error {
	return fmt.Errorf("linear pool %s: %w", op, errs.ErrUnsupportedOperation)
}
