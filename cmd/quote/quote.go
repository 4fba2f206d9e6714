package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"balancerScope/internal/model"
	"balancerScope/internal/pool"
	"balancerScope/internal/scaling"
)

var (
	runSwap      = quoteCommand("swap", swap)
	runJoin      = quoteCommand("join", join)
	runExit      = quoteCommand("exit", exit)
	runInvariant = quoteCommand("invariant", invariant)
	runFees      = quoteCommand("fees", fees)
)

type quoteOutput struct {
	Quote       model.QuoteRecord `json:"quote"`
	PriceImpact string            `json:"price_impact,omitempty"`
}

func swap(ctx context.Context, s *session) (any, error) {
	cfg := s.cfg
	if cfg.TokenIn == "" || cfg.TokenOut == "" {
		return nil, fmt.Errorf("token-in and token-out are required")
	}
	if cfg.Amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	var (
		q   pool.Quote
		err error
	)
	if cfg.GivenOut {
		q, err = s.pool.SwapGivenOut(cfg.TokenIn, cfg.TokenOut, cfg.Amount)
	} else {
		q, err = s.pool.SwapGivenIn(cfg.TokenIn, cfg.TokenOut, cfg.Amount)
	}
	if err != nil {
		return nil, err
	}
	return s.output(ctx, q, "")
}

func join(ctx context.Context, s *session) (any, error) {
	cfg := s.cfg
	switch {
	case len(cfg.Amounts) > 0:
		q, err := s.pool.JoinExactTokensIn(cfg.Amounts)
		if err != nil {
			return nil, err
		}
		impact, err := pool.PriceImpact(s.pool, cfg.Amounts, q.Result)
		if err != nil {
			// Not every kind prices joins against spot; the quote stands.
			s.logger.Debug("price impact unavailable", zap.Error(err))
			return s.output(ctx, q, "")
		}
		return s.output(ctx, q, scaling.FormatFixed(impact))
	case cfg.Token != "" && cfg.Amount != "":
		q, err := s.pool.JoinExactBptOut(cfg.Token, cfg.Amount)
		if err != nil {
			return nil, err
		}
		return s.output(ctx, q, "")
	default:
		return nil, fmt.Errorf("either amounts or token and amount are required")
	}
}

func exit(ctx context.Context, s *session) (any, error) {
	cfg := s.cfg
	var (
		q   pool.Quote
		err error
	)
	switch {
	case len(cfg.Amounts) > 0:
		q, err = s.pool.ExitExactTokensOut(cfg.Amounts)
	case cfg.Amount != "" && cfg.Token != "":
		q, err = s.pool.ExitExactBptIn(cfg.Token, cfg.Amount)
	case cfg.Amount != "":
		q, err = s.pool.ExitExactBptInProportional(cfg.Amount)
	default:
		return nil, fmt.Errorf("either amounts or amount is required")
	}
	if err != nil {
		return nil, err
	}
	return s.output(ctx, q, "")
}

func (s *session) output(ctx context.Context, q pool.Quote, impact string) (any, error) {
	records, err := s.journal(ctx, q)
	if err != nil {
		return nil, err
	}
	return quoteOutput{Quote: records[0], PriceImpact: impact}, nil
}

type invariantOutput struct {
	Pool        string            `json:"pool"`
	Kind        model.PoolKind    `json:"kind"`
	Invariant   string            `json:"invariant"`
	TotalShares string            `json:"total_shares"`
	Balances    []string          `json:"balances"`
	BptPrices   map[string]string `json:"bpt_prices,omitempty"`
}

func invariant(_ context.Context, s *session) (any, error) {
	inv, err := s.pool.Invariant()
	if err != nil {
		return nil, err
	}
	balances, err := s.pool.Balances()
	if err != nil {
		return nil, err
	}
	out := invariantOutput{
		Pool:        s.pool.Address(),
		Kind:        s.pool.Kind(),
		Invariant:   scaling.FormatFixed(inv),
		TotalShares: s.pool.TotalShares(),
		Balances:    balances,
		BptPrices:   make(map[string]string),
	}
	for _, token := range s.pool.Tokens() {
		price, err := pool.BptPrice(s.pool, token.Address)
		if err != nil {
			s.logger.Debug("bpt price unavailable", zap.String("token", token.Address), zap.Error(err))
			continue
		}
		out.BptPrices[token.Address] = scaling.FormatFixed(price)
	}
	return out, nil
}

type feesOutput struct {
	Pool   string `json:"pool"`
	Token  string `json:"token"`
	Symbol string `json:"symbol,omitempty"`
	Amount string `json:"amount"`
}

func fees(_ context.Context, s *session) (any, error) {
	if s.cfg.LastInvariant == "" {
		return nil, fmt.Errorf("last-invariant is required")
	}
	fee, err := pool.DueProtocolFee(s.pool, s.cfg.LastInvariant, s.cfg.ProtocolFee)
	if err != nil {
		return nil, err
	}
	return feesOutput{
		Pool:   s.pool.Address(),
		Token:  fee.Token.Address,
		Symbol: fee.Token.Symbol,
		Amount: fee.Amount,
	}, nil
}
