// Package pool wraps the math packages behind a closed set of pool kinds.
//
// A Pool is built from a model.PoolSnapshot, takes human decimal amounts and
// returns a Quote carrying the post-trade balances. Quotes never touch the
// pool they were computed on; Apply commits one explicitly. Pools are not
// safe for concurrent mutation, so Clone before chaining quotes from several
// goroutines.
package pool

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"balancerScope/internal/errs"
	fp "balancerScope/internal/fixedpoint"
	"balancerScope/internal/model"
	"balancerScope/internal/scaling"
)

// Pool is implemented by *WeightedPool, *StablePool, *MetaStablePool,
// *PhantomStablePool and *LinearPool only.
type Pool interface {
	Kind() model.PoolKind
	Address() string
	Tokens() []Token
	Balances() ([]string, error)
	TotalShares() string

	SwapGivenIn(tokenIn, tokenOut, amount string) (Quote, error)
	SwapGivenOut(tokenIn, tokenOut, amount string) (Quote, error)
	JoinExactTokensIn(amounts []string) (Quote, error)
	JoinExactBptOut(token, bptOut string) (Quote, error)
	ExitExactBptIn(token, bptIn string) (Quote, error)
	ExitExactBptInProportional(bptIn string) (Quote, error)
	ExitExactTokensOut(amounts []string) (Quote, error)
	Invariant() (*uint256.Int, error)

	Apply(q Quote) error
	Clone() Pool

	state() *base
}

// Token identifies a pool token.
type Token struct {
	Address  string
	Symbol   string
	Decimals uint8
}

// Operation names the kind of a quote.
type Operation string

const (
	OpSwapGivenIn                Operation = "swap_given_in"
	OpSwapGivenOut               Operation = "swap_given_out"
	OpJoinExactTokensIn          Operation = "join_exact_tokens_in"
	OpJoinExactBptOut            Operation = "join_exact_bpt_out"
	OpExitExactBptIn             Operation = "exit_exact_bpt_in"
	OpExitExactBptInProportional Operation = "exit_exact_bpt_in_proportional"
	OpExitExactTokensOut         Operation = "exit_exact_tokens_out"
)

// Quote is the outcome of a pool operation. Given echoes the caller's amount
// and Result holds the computed one, both in the precision of the token they
// denominate. Multi-token operations list per-token amounts in Amounts.
type Quote struct {
	Pool      string
	Operation Operation
	TokenIn   string
	TokenOut  string
	Given     string
	Result    string
	Amounts   []string

	epoch       uint64
	balances    []*uint256.Int
	totalShares *uint256.Int
}

// Option configures a pool built by FromSnapshot.
type Option func(*base)

// WithLogger attaches a logger for quote and apply events.
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// FromSnapshot validates a snapshot and builds the pool it describes.
func FromSnapshot(snap model.PoolSnapshot, opts ...Option) (Pool, error) {
	var (
		p   Pool
		err error
	)
	switch snap.Kind {
	case model.KindWeighted:
		p, err = newWeighted(snap)
	case model.KindStable:
		p, err = newStable(snap)
	case model.KindMetaStable:
		p, err = newMetaStable(snap)
	case model.KindStablePhantom:
		p, err = newPhantomStable(snap)
	case model.KindLinear:
		p, err = newLinear(snap)
	default:
		return nil, fmt.Errorf("pool %s kind %q: %w", snap.Address, snap.Kind, errs.ErrUnsupportedPoolKind)
	}
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", snap.Address, err)
	}
	b := p.state()
	for _, opt := range opts {
		opt(b)
	}
	return p, nil
}

// base is the state shared by every pool kind. Balances and the total BPT
// supply are upscaled to 18 decimals, rates included.
type base struct {
	address     string
	tokens      []Token
	factors     []*uint256.Int
	balances    []*uint256.Int
	swapFee     *uint256.Int
	totalShares *uint256.Int

	// bptIndex is the position of the pool's own BPT among tokens, or -1.
	// Moving BPT in or out changes totalShares instead of a balance.
	bptIndex int

	epoch  uint64
	logger *zap.Logger
}

func newBase(snap model.PoolSnapshot, tokens []model.TokenSnapshot, withRates bool) (base, error) {
	b := base{
		address:  snap.Address,
		tokens:   make([]Token, len(tokens)),
		factors:  make([]*uint256.Int, len(tokens)),
		balances: make([]*uint256.Int, len(tokens)),
		bptIndex: -1,
		epoch:    nextEpoch(),
		logger:   zap.NewNop(),
	}
	var err error
	if b.swapFee, err = scaling.ParseFixed(snap.SwapFee); err != nil {
		return base{}, fmt.Errorf("swap fee: %w", err)
	}
	if !b.swapFee.Lt(fp.One) {
		return base{}, fmt.Errorf("swap fee: %w", errs.ErrOutOfBounds)
	}
	if b.totalShares, err = scaling.ParseFixed(snap.TotalShares); err != nil {
		return base{}, fmt.Errorf("total shares: %w", err)
	}
	for i, t := range tokens {
		var rate *uint256.Int
		if withRates && t.PriceRate != "" {
			if rate, err = scaling.ParseFixed(t.PriceRate); err != nil {
				return base{}, fmt.Errorf("token %s price rate: %w", t.Address, err)
			}
		}
		if b.factors[i], err = scaling.FixedPointScalingFactor(t.Decimals, rate); err != nil {
			return base{}, fmt.Errorf("token %s: %w", t.Address, err)
		}
		native, err := scaling.ParseNative(t.Balance, t.Decimals)
		if err != nil {
			return base{}, fmt.Errorf("token %s balance: %w", t.Address, err)
		}
		if b.balances[i], err = scaling.UpscaleRaw(native, b.factors[i]); err != nil {
			return base{}, fmt.Errorf("token %s balance: %w", t.Address, err)
		}
		b.tokens[i] = Token{Address: t.Address, Symbol: t.Symbol, Decimals: t.Decimals}
	}
	return b, nil
}

func (b *base) state() *base { return b }

// Address returns the pool address.
func (b *base) Address() string { return b.address }

// Tokens returns the tokens the pool's math operates on.
func (b *base) Tokens() []Token {
	out := make([]Token, len(b.tokens))
	copy(out, b.tokens)
	return out
}

// Balances returns the token balances in native precision, rounded down.
func (b *base) Balances() ([]string, error) {
	out := make([]string, len(b.balances))
	for i := range b.balances {
		native, _, err := b.payout(i, b.balances[i])
		if err != nil {
			return nil, fmt.Errorf("token %s balance: %w", b.tokens[i].Address, err)
		}
		out[i] = native
	}
	return out, nil
}

// TotalShares returns the BPT supply the math uses.
func (b *base) TotalShares() string {
	return scaling.FormatFixed(b.totalShares)
}

// Apply commits q to the pool. Only a quote computed on the pool's current
// state can be applied, and only once.
func (b *base) Apply(q Quote) error {
	if !equalAddress(q.Pool, b.address) || q.epoch != b.epoch || len(q.balances) != len(b.balances) {
		return errs.ErrStaleQuote
	}
	b.balances = fp.Clone(q.balances)
	b.totalShares = q.totalShares.Clone()
	b.epoch = nextEpoch()
	b.logger.Debug("quote applied",
		zap.String("pool", b.address),
		zap.String("operation", string(q.Operation)),
		zap.Uint64("epoch", b.epoch),
	)
	return nil
}

// epochs numbers pool states process-wide, so a quote only ever matches the
// one state it was computed on, across clones too.
var epochs atomic.Uint64

func nextEpoch() uint64 { return epochs.Add(1) }

func (b *base) clone() base {
	out := *b
	out.tokens = b.Tokens()
	out.factors = fp.Clone(b.factors)
	out.balances = fp.Clone(b.balances)
	out.swapFee = b.swapFee.Clone()
	out.totalShares = b.totalShares.Clone()
	out.epoch = nextEpoch()
	return out
}

func equalAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// index resolves a token by address or symbol, both case-insensitive.
func (b *base) index(token string) (int, error) {
	for i, t := range b.tokens {
		if equalAddress(t.Address, token) {
			return i, nil
		}
	}
	for i, t := range b.tokens {
		if t.Symbol != "" && strings.EqualFold(t.Symbol, token) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("token %q: %w", token, errs.ErrTokenNotFound)
}

func (b *base) pair(tokenIn, tokenOut string) (int, int, error) {
	i, err := b.index(tokenIn)
	if err != nil {
		return 0, 0, err
	}
	o, err := b.index(tokenOut)
	if err != nil {
		return 0, 0, err
	}
	if i == o {
		return 0, 0, fmt.Errorf("token %q on both sides: %w", tokenIn, errs.ErrTokenNotFound)
	}
	return i, o, nil
}

// upscale parses a human amount of token i into the math representation.
func (b *base) upscale(i int, amount string) (*uint256.Int, error) {
	native, err := scaling.ParseNative(amount, b.tokens[i].Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	return scaling.UpscaleRaw(native, b.factors[i])
}

func (b *base) upscaleAll(amounts []string) ([]*uint256.Int, error) {
	if len(amounts) != len(b.tokens) {
		return nil, errs.ErrInputLengthMismatch
	}
	out := make([]*uint256.Int, len(amounts))
	for i, a := range amounts {
		v, err := b.upscale(i, a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// payout downscales an amount leaving the pool, rounding down. It returns
// the human amount and the upscaled value actually removed from the balance.
func (b *base) payout(i int, v *uint256.Int) (string, *uint256.Int, error) {
	native, err := scaling.DownscaleDown(v, b.factors[i])
	if err != nil {
		return "", nil, err
	}
	moved, err := scaling.UpscaleRaw(native, b.factors[i])
	if err != nil {
		return "", nil, err
	}
	return scaling.FormatNative(native, b.tokens[i].Decimals), moved, nil
}

// payin downscales an amount the caller pays into the pool, rounding up.
func (b *base) payin(i int, v *uint256.Int) (string, *uint256.Int, error) {
	native, err := scaling.DownscaleUp(v, b.factors[i])
	if err != nil {
		return "", nil, err
	}
	moved, err := scaling.UpscaleRaw(native, b.factors[i])
	if err != nil {
		return "", nil, err
	}
	return scaling.FormatNative(native, b.tokens[i].Decimals), moved, nil
}

// ledger accumulates the post-trade state of a quote.
type ledger struct {
	b        *base
	balances []*uint256.Int
	shares   *uint256.Int
}

func (b *base) ledger() *ledger {
	return &ledger{b: b, balances: fp.Clone(b.balances), shares: b.totalShares.Clone()}
}

// credit records amount of token i entering the pool.
func (l *ledger) credit(i int, amount *uint256.Int) error {
	var err error
	if i == l.b.bptIndex {
		l.shares, err = fp.Sub(l.shares, amount)
		return err
	}
	l.balances[i], err = fp.Add(l.balances[i], amount)
	return err
}

// debit records amount of token i leaving the pool.
func (l *ledger) debit(i int, amount *uint256.Int) error {
	var err error
	if i == l.b.bptIndex {
		l.shares, err = fp.Add(l.shares, amount)
		return err
	}
	l.balances[i], err = fp.Sub(l.balances[i], amount)
	return err
}

func (l *ledger) mint(bpt *uint256.Int) (err error) {
	l.shares, err = fp.Add(l.shares, bpt)
	return err
}

func (l *ledger) burn(bpt *uint256.Int) (err error) {
	l.shares, err = fp.Sub(l.shares, bpt)
	return err
}

func (l *ledger) quote(op Operation) Quote {
	q := Quote{
		Pool:        l.b.address,
		Operation:   op,
		epoch:       l.b.epoch,
		balances:    l.balances,
		totalShares: l.shares,
	}
	return q
}

func (b *base) logQuote(q Quote) {
	b.logger.Debug("quote",
		zap.String("pool", q.Pool),
		zap.String("operation", string(q.Operation)),
		zap.String("token_in", q.TokenIn),
		zap.String("token_out", q.TokenOut),
		zap.String("given", q.Given),
		zap.String("result", q.Result),
		zap.Strings("amounts", q.Amounts),
	)
}
