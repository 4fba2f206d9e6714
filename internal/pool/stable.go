package pool

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"balancerScope/internal/errs"
	"balancerScope/internal/model"
	"balancerScope/internal/scaling"
	"balancerScope/internal/stable"
)

// StablePool is a StableSwap pool.
type StablePool struct {
	base
	// amp is the amplification parameter times stable.AmpPrecision.
	amp *uint256.Int
}

func newStableFromTokens(snap model.PoolSnapshot, tokens []model.TokenSnapshot, withRates bool) (StablePool, error) {
	if err := stable.ValidateTokenCount(len(tokens)); err != nil {
		return StablePool{}, err
	}
	amp, err := scaling.ParseNative(snap.Amp, 3)
	if err != nil {
		return StablePool{}, fmt.Errorf("amp: %w", err)
	}
	if err := stable.ValidateAmp(amp); err != nil {
		return StablePool{}, err
	}
	b, err := newBase(snap, tokens, withRates)
	if err != nil {
		return StablePool{}, err
	}
	return StablePool{base: b, amp: amp}, nil
}

func newStable(snap model.PoolSnapshot) (*StablePool, error) {
	p, err := newStableFromTokens(snap, snap.Tokens, false)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *StablePool) Kind() model.PoolKind { return model.KindStable }

// Amp returns the precision-scaled amplification parameter.
func (p *StablePool) Amp() *uint256.Int { return p.amp.Clone() }

func (p *StablePool) Clone() Pool {
	c := p.cloneStable()
	return &c
}

func (p *StablePool) cloneStable() StablePool {
	return StablePool{base: p.base.clone(), amp: p.amp.Clone()}
}

func (p *StablePool) Invariant() (*uint256.Int, error) {
	return stable.Invariant(p.amp, p.balances, true)
}

func (p *StablePool) SwapGivenIn(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenIn(tokenIn, tokenOut, amount, func(i, o int, in *uint256.Int) (*uint256.Int, error) {
		return stable.SwapGivenIn(p.amp, p.balances, i, o, in, p.swapFee)
	})
}

func (p *StablePool) SwapGivenOut(tokenIn, tokenOut, amount string) (Quote, error) {
	return p.swapGivenOut(tokenIn, tokenOut, amount, func(i, o int, out *uint256.Int) (*uint256.Int, error) {
		return stable.SwapGivenOut(p.amp, p.balances, i, o, out, p.swapFee)
	})
}

func (p *StablePool) JoinExactTokensIn(amounts []string) (Quote, error) {
	return p.joinExactTokensIn(amounts, func(ins []*uint256.Int) (*uint256.Int, error) {
		return stable.BptOutGivenExactTokensIn(p.amp, p.balances, ins, p.totalShares, p.swapFee)
	})
}

func (p *StablePool) JoinExactBptOut(token, bptOut string) (Quote, error) {
	return p.joinExactBptOut(token, bptOut, func(i int, bpt *uint256.Int) (*uint256.Int, error) {
		return stable.TokenInGivenExactBptOut(p.amp, p.balances, i, bpt, p.totalShares, p.swapFee)
	})
}

func (p *StablePool) ExitExactBptIn(token, bptIn string) (Quote, error) {
	return p.exitExactBptIn(token, bptIn, func(i int, bpt *uint256.Int) (*uint256.Int, error) {
		return stable.TokenOutGivenExactBptIn(p.amp, p.balances, i, bpt, p.totalShares, p.swapFee)
	})
}

func (p *StablePool) ExitExactBptInProportional(bptIn string) (Quote, error) {
	return p.exitExactBptInProportional(bptIn, func(bpt *uint256.Int) ([]*uint256.Int, error) {
		return stable.TokensOutGivenExactBptIn(p.balances, bpt, p.totalShares)
	})
}

func (p *StablePool) ExitExactTokensOut(amounts []string) (Quote, error) {
	return p.exitExactTokensOut(amounts, func(outs []*uint256.Int) (*uint256.Int, error) {
		return stable.BptInGivenExactTokensOut(p.amp, p.balances, outs, p.totalShares, p.swapFee)
	})
}

// MetaStablePool is a stable pool whose scaling factors include per-token
// price rates, so the math sees rate-adjusted balances.
type MetaStablePool struct {
	StablePool
}

func newMetaStable(snap model.PoolSnapshot) (*MetaStablePool, error) {
	p, err := newStableFromTokens(snap, snap.Tokens, true)
	if err != nil {
		return nil, err
	}
	return &MetaStablePool{StablePool: p}, nil
}

func (p *MetaStablePool) Kind() model.PoolKind { return model.KindMetaStable }

func (p *MetaStablePool) Clone() Pool {
	return &MetaStablePool{StablePool: p.cloneStable()}
}

// PhantomStablePool is a stable pool that holds its own pre-minted BPT as a
// token. The BPT is kept out of the math; swaps against it are priced as
// single-token joins and exits on the virtual supply.
type PhantomStablePool struct {
	StablePool
	bpt Token
}

func newPhantomStable(snap model.PoolSnapshot) (*PhantomStablePool, error) {
	tokens := make([]model.TokenSnapshot, 0, len(snap.Tokens))
	var bpt *model.TokenSnapshot
	for i := range snap.Tokens {
		if equalAddress(snap.Tokens[i].Address, snap.Address) {
			bpt = &snap.Tokens[i]
			continue
		}
		tokens = append(tokens, snap.Tokens[i])
	}
	if bpt == nil {
		return nil, fmt.Errorf("bpt token %s: %w", snap.Address, errs.ErrTokenNotFound)
	}
	p, err := newStableFromTokens(snap, tokens, true)
	if err != nil {
		return nil, err
	}
	return &PhantomStablePool{
		StablePool: p,
		bpt:        Token{Address: bpt.Address, Symbol: bpt.Symbol, Decimals: scaling.MaxDecimals},
	}, nil
}

func (p *PhantomStablePool) Kind() model.PoolKind { return model.KindStablePhantom }

func (p *PhantomStablePool) Clone() Pool {
	return &PhantomStablePool{StablePool: p.cloneStable(), bpt: p.bpt}
}

func (p *PhantomStablePool) isBpt(token string) bool {
	return equalAddress(token, p.bpt.Address) || (p.bpt.Symbol != "" && strings.EqualFold(token, p.bpt.Symbol))
}

func (p *PhantomStablePool) SwapGivenIn(tokenIn, tokenOut, amount string) (Quote, error) {
	switch {
	case p.isBpt(tokenIn) && p.isBpt(tokenOut):
		return Quote{}, fmt.Errorf("bpt on both sides: %w", errs.ErrTokenNotFound)
	case p.isBpt(tokenOut):
		amounts, err := p.single(tokenIn, amount)
		if err != nil {
			return Quote{}, err
		}
		q, err := p.JoinExactTokensIn(amounts)
		if err != nil {
			return Quote{}, err
		}
		return p.asSwap(q, OpSwapGivenIn, tokenIn, p.bpt.Address, amount), nil
	case p.isBpt(tokenIn):
		q, err := p.ExitExactBptIn(tokenOut, amount)
		if err != nil {
			return Quote{}, err
		}
		return p.asSwap(q, OpSwapGivenIn, p.bpt.Address, tokenOut, amount), nil
	default:
		return p.StablePool.SwapGivenIn(tokenIn, tokenOut, amount)
	}
}

func (p *PhantomStablePool) SwapGivenOut(tokenIn, tokenOut, amount string) (Quote, error) {
	switch {
	case p.isBpt(tokenIn) && p.isBpt(tokenOut):
		return Quote{}, fmt.Errorf("bpt on both sides: %w", errs.ErrTokenNotFound)
	case p.isBpt(tokenOut):
		q, err := p.JoinExactBptOut(tokenIn, amount)
		if err != nil {
			return Quote{}, err
		}
		return p.asSwap(q, OpSwapGivenOut, tokenIn, p.bpt.Address, amount), nil
	case p.isBpt(tokenIn):
		amounts, err := p.single(tokenOut, amount)
		if err != nil {
			return Quote{}, err
		}
		q, err := p.ExitExactTokensOut(amounts)
		if err != nil {
			return Quote{}, err
		}
		return p.asSwap(q, OpSwapGivenOut, p.bpt.Address, tokenOut, amount), nil
	default:
		return p.StablePool.SwapGivenOut(tokenIn, tokenOut, amount)
	}
}

// single builds a per-token amount vector with amount at token's position.
func (p *PhantomStablePool) single(token, amount string) ([]string, error) {
	i, err := p.index(token)
	if err != nil {
		return nil, err
	}
	amounts := make([]string, len(p.tokens))
	for j := range amounts {
		amounts[j] = "0"
	}
	amounts[i] = amount
	return amounts, nil
}

func (p *PhantomStablePool) asSwap(q Quote, op Operation, tokenIn, tokenOut, amount string) Quote {
	q.Operation = op
	if i, err := p.index(tokenIn); err == nil {
		tokenIn = p.tokens[i].Address
	}
	if o, err := p.index(tokenOut); err == nil {
		tokenOut = p.tokens[o].Address
	}
	q.TokenIn, q.TokenOut = tokenIn, tokenOut
	q.Given = strings.TrimSpace(amount)
	q.Amounts = nil
	return q
}
