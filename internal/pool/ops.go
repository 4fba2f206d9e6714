package pool

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"balancerScope/internal/scaling"
)

// The helpers below run the parse, math, downscale and ledger steps shared by
// every kind. Callers supply only the math, operating on upscaled values.

type (
	swapMath       func(i, o int, amount *uint256.Int) (*uint256.Int, error)
	multiTokenMath func(amounts []*uint256.Int) (*uint256.Int, error)
	singleBptMath  func(i int, bpt *uint256.Int) (*uint256.Int, error)
)

func (b *base) swapGivenIn(tokenIn, tokenOut, amount string, calc swapMath) (Quote, error) {
	i, o, err := b.pair(tokenIn, tokenOut)
	if err != nil {
		return Quote{}, err
	}
	in, err := b.upscale(i, amount)
	if err != nil {
		return Quote{}, err
	}
	out, err := calc(i, o, in)
	if err != nil {
		return Quote{}, fmt.Errorf("swap given in: %w", err)
	}
	result, moved, err := b.payout(o, out)
	if err != nil {
		return Quote{}, err
	}

	l := b.ledger()
	if err := l.credit(i, in); err != nil {
		return Quote{}, err
	}
	if err := l.debit(o, moved); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpSwapGivenIn)
	q.TokenIn, q.TokenOut = b.tokens[i].Address, b.tokens[o].Address
	q.Given, q.Result = strings.TrimSpace(amount), result
	b.logQuote(q)
	return q, nil
}

func (b *base) swapGivenOut(tokenIn, tokenOut, amount string, calc swapMath) (Quote, error) {
	i, o, err := b.pair(tokenIn, tokenOut)
	if err != nil {
		return Quote{}, err
	}
	out, err := b.upscale(o, amount)
	if err != nil {
		return Quote{}, err
	}
	in, err := calc(i, o, out)
	if err != nil {
		return Quote{}, fmt.Errorf("swap given out: %w", err)
	}
	result, moved, err := b.payin(i, in)
	if err != nil {
		return Quote{}, err
	}

	l := b.ledger()
	if err := l.credit(i, moved); err != nil {
		return Quote{}, err
	}
	if err := l.debit(o, out); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpSwapGivenOut)
	q.TokenIn, q.TokenOut = b.tokens[i].Address, b.tokens[o].Address
	q.Given, q.Result = strings.TrimSpace(amount), result
	b.logQuote(q)
	return q, nil
}

func (b *base) joinExactTokensIn(amounts []string, calc multiTokenMath) (Quote, error) {
	ins, err := b.upscaleAll(amounts)
	if err != nil {
		return Quote{}, err
	}
	bpt, err := calc(ins)
	if err != nil {
		return Quote{}, fmt.Errorf("join exact tokens in: %w", err)
	}

	l := b.ledger()
	for i, in := range ins {
		if err := l.credit(i, in); err != nil {
			return Quote{}, err
		}
	}
	if err := l.mint(bpt); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpJoinExactTokensIn)
	q.TokenOut = b.address
	q.Amounts = trimAll(amounts)
	q.Result = scaling.FormatFixed(bpt)
	b.logQuote(q)
	return q, nil
}

func (b *base) joinExactBptOut(token, bptOut string, calc singleBptMath) (Quote, error) {
	i, err := b.index(token)
	if err != nil {
		return Quote{}, err
	}
	bpt, err := scaling.ParseFixed(bptOut)
	if err != nil {
		return Quote{}, fmt.Errorf("bpt amount %q: %w", bptOut, err)
	}
	in, err := calc(i, bpt)
	if err != nil {
		return Quote{}, fmt.Errorf("join exact bpt out: %w", err)
	}
	result, moved, err := b.payin(i, in)
	if err != nil {
		return Quote{}, err
	}

	l := b.ledger()
	if err := l.credit(i, moved); err != nil {
		return Quote{}, err
	}
	if err := l.mint(bpt); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpJoinExactBptOut)
	q.TokenIn, q.TokenOut = b.tokens[i].Address, b.address
	q.Given, q.Result = strings.TrimSpace(bptOut), result
	b.logQuote(q)
	return q, nil
}

func (b *base) exitExactBptIn(token, bptIn string, calc singleBptMath) (Quote, error) {
	i, err := b.index(token)
	if err != nil {
		return Quote{}, err
	}
	bpt, err := scaling.ParseFixed(bptIn)
	if err != nil {
		return Quote{}, fmt.Errorf("bpt amount %q: %w", bptIn, err)
	}
	out, err := calc(i, bpt)
	if err != nil {
		return Quote{}, fmt.Errorf("exit exact bpt in: %w", err)
	}
	result, moved, err := b.payout(i, out)
	if err != nil {
		return Quote{}, err
	}

	l := b.ledger()
	if err := l.debit(i, moved); err != nil {
		return Quote{}, err
	}
	if err := l.burn(bpt); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpExitExactBptIn)
	q.TokenIn, q.TokenOut = b.address, b.tokens[i].Address
	q.Given, q.Result = strings.TrimSpace(bptIn), result
	b.logQuote(q)
	return q, nil
}

func (b *base) exitExactBptInProportional(bptIn string, calc func(bpt *uint256.Int) ([]*uint256.Int, error)) (Quote, error) {
	bpt, err := scaling.ParseFixed(bptIn)
	if err != nil {
		return Quote{}, fmt.Errorf("bpt amount %q: %w", bptIn, err)
	}
	outs, err := calc(bpt)
	if err != nil {
		return Quote{}, fmt.Errorf("exit exact bpt in proportional: %w", err)
	}

	l := b.ledger()
	amounts := make([]string, len(outs))
	for i, out := range outs {
		result, moved, err := b.payout(i, out)
		if err != nil {
			return Quote{}, err
		}
		if err := l.debit(i, moved); err != nil {
			return Quote{}, err
		}
		amounts[i] = result
	}
	if err := l.burn(bpt); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpExitExactBptInProportional)
	q.TokenIn = b.address
	q.Given = strings.TrimSpace(bptIn)
	q.Amounts = amounts
	b.logQuote(q)
	return q, nil
}

func (b *base) exitExactTokensOut(amounts []string, calc multiTokenMath) (Quote, error) {
	outs, err := b.upscaleAll(amounts)
	if err != nil {
		return Quote{}, err
	}
	bpt, err := calc(outs)
	if err != nil {
		return Quote{}, fmt.Errorf("exit exact tokens out: %w", err)
	}

	l := b.ledger()
	for i, out := range outs {
		if err := l.debit(i, out); err != nil {
			return Quote{}, err
		}
	}
	if err := l.burn(bpt); err != nil {
		return Quote{}, err
	}
	q := l.quote(OpExitExactTokensOut)
	q.TokenIn = b.address
	q.Amounts = trimAll(amounts)
	q.Result = scaling.FormatFixed(bpt)
	b.logQuote(q)
	return q, nil
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
